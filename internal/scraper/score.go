package scraper

import (
	"net/url"
	"strings"
)

// ScoreConfig holds the keyword tiers used to prioritize crawl links.
type ScoreConfig struct {
	Critical               []string
	HighPriority           []string
	General                []string
	MaxKeywordPathSegments int
}

const (
	scoreCriticalStandalone = 100
	scoreCriticalInSegment  = 90
	scoreCombinedBase       = 80
	scoreGeneralInSegment   = 50
	scoreAnchorTextOnly     = 40
	maxSegmentPenalty       = 20
)

// ScoreLink rates an outbound link's likelihood of leading to contact or
// imprint information. Path segments dominate; anchor text only matters
// when the path itself carries no signal. Deep keyword-heavy paths are
// penalized so that /kontakt beats /blog/tag/kontakt/archive.
func ScoreLink(rawURL, anchorText string, cfg ScoreConfig) int {
	segments := pathSegments(rawURL)

	best := 0

	for _, seg := range segments {
		for _, kw := range cfg.Critical {
			if seg == kw {
				best = maxInt(best, scoreCriticalStandalone)
			} else if strings.Contains(seg, kw) {
				best = maxInt(best, scoreCriticalInSegment)
			}
		}
	}

	// Two or more distinct high-priority keywords across the path score by
	// the position of the first hit: earlier is better.
	firstIdx := -1
	found := make(map[string]struct{})
	for i, seg := range segments {
		for _, kw := range cfg.HighPriority {
			if strings.Contains(seg, kw) {
				if firstIdx < 0 {
					firstIdx = i
				}
				found[kw] = struct{}{}
			}
		}
	}
	if len(found) >= 2 {
		best = maxInt(best, scoreCombinedBase-5*firstIdx)
	}

	for _, seg := range segments {
		for _, kw := range cfg.General {
			if strings.Contains(seg, kw) {
				best = maxInt(best, scoreGeneralInSegment)
			}
		}
	}

	if best == 0 && anchorText != "" {
		anchor := strings.ToLower(anchorText)
		for _, kw := range allKeywords(cfg) {
			if strings.Contains(anchor, kw) {
				best = scoreAnchorTextOnly
				break
			}
		}
	}

	if best > 0 && cfg.MaxKeywordPathSegments > 0 && len(segments) > cfg.MaxKeywordPathSegments {
		penalty := 5 * (len(segments) - cfg.MaxKeywordPathSegments)
		if penalty > maxSegmentPenalty {
			penalty = maxSegmentPenalty
		}
		best -= penalty
		if best < 0 {
			best = 0
		}
	}

	return best
}

func pathSegments(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, strings.ToLower(p))
		}
	}
	return segments
}

func allKeywords(cfg ScoreConfig) []string {
	out := make([]string, 0, len(cfg.Critical)+len(cfg.HighPriority)+len(cfg.General))
	out = append(out, cfg.Critical...)
	out = append(out, cfg.HighPriority...)
	out = append(out, cfg.General...)
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
