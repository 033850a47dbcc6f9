package scraper

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/ncecere/phonescout/internal/urlnorm"
)

// RobotsGate answers whether a URL may be fetched for a user agent.
type RobotsGate interface {
	Allowed(ctx context.Context, pageURL, userAgent string) bool
}

// CrawlConfig bundles the crawl limits and scoring tiers for one run.
type CrawlConfig struct {
	UserAgent             string
	MaxPages              int
	MaxDepth              int
	ScoreThreshold        int
	HighPriorityThreshold int
	BypassAllowance       int
	Score                 ScoreConfig
	ContentDir            string
	RespectRobots         bool
}

// Crawler walks one site from its entry URL: a bounded best-first
// traversal that prefers contact and imprint pages, stores each page's
// cleaned text and reports a single site-level status.
type Crawler struct {
	Fetcher Fetcher
	Robots  RobotsGate
	Visited *VisitRegistry
	Log     zerolog.Logger
	Cfg     CrawlConfig
}

type frontierItem struct {
	url   string
	score int
	depth int
}

// frontier keeps pending links ordered by score descending, then depth
// ascending, then insertion order.
type frontier struct {
	items []frontierItem
}

func (f *frontier) push(it frontierItem) {
	f.items = append(f.items, it)
	sort.SliceStable(f.items, func(i, j int) bool {
		if f.items[i].score != f.items[j].score {
			return f.items[i].score > f.items[j].score
		}
		return f.items[i].depth < f.items[j].depth
	})
}

func (f *frontier) pop() frontierItem {
	it := f.items[0]
	f.items = f.items[1:]
	return it
}

func (f *frontier) len() int { return len(f.items) }

// ScrapeSite crawls the site behind entryURL. The returned result always
// carries a definite status; fetch failures are mapped, not propagated.
func (c *Crawler) ScrapeSite(ctx context.Context, entryURL string) *SiteResult {
	base, err := urlnorm.CanonicalBase(entryURL)
	if err != nil {
		return &SiteResult{Status: StatusInvalidURL}
	}
	res := &SiteResult{CanonicalEntryURL: base}
	entryHost := hostOf(base)

	conv := htmlmd.NewConverter(entryHost, true, nil)

	queue := &frontier{}
	queue.push(frontierItem{url: entryURL, score: scoreCriticalStandalone, depth: 0})
	queued := map[string]struct{}{urlnorm.CanonicalPageURL(entryURL): {}}

	fetched := 0
	bypassUsed := 0
	isEntry := true

	for queue.len() > 0 {
		if ctx.Err() != nil {
			if isEntry {
				res.Status = ClassifyFetchError(ctx.Err())
				return res
			}
			break
		}

		item := queue.pop()

		if fetched >= c.Cfg.MaxPages {
			if item.score >= c.Cfg.HighPriorityThreshold && bypassUsed < c.Cfg.BypassAllowance {
				bypassUsed++
			} else {
				continue
			}
		}

		if c.Cfg.RespectRobots && c.Robots != nil && !c.Robots.Allowed(ctx, item.url, c.Cfg.UserAgent) {
			c.Log.Debug().Str("url", item.url).Msg("blocked by robots.txt")
			if isEntry {
				res.Status = StatusRobotsDisallowed
				return res
			}
			continue
		}

		page, err := c.Fetcher.Fetch(ctx, item.url)
		if err != nil {
			if isEntry {
				res.Status = ClassifyFetchError(err)
				return res
			}
			c.Log.Debug().Str("url", item.url).Err(err).Msg("subpage fetch failed")
			continue
		}
		fetched++

		if page.StatusCode >= 400 {
			if isEntry {
				res.Status = StatusHTTPError
				res.HTTPCode = page.StatusCode
				return res
			}
			continue
		}

		canon := urlnorm.CanonicalPageURL(page.URL)
		if !c.Visited.Add(canon) {
			if isEntry {
				res.Status = StatusAlreadyProcessed
				return res
			}
			continue
		}
		isEntry = false

		text, convErr := conv.ConvertString(page.HTML)
		if convErr != nil || strings.TrimSpace(text) == "" {
			if doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(page.HTML)); docErr == nil {
				text = doc.Text()
			}
		}

		pageType := ClassifyPageType(page.URL, page.Title)
		if strings.TrimSpace(text) != "" {
			res.Pages = append(res.Pages, PageResult{
				URL:          page.URL,
				CanonicalURL: canon,
				PageType:     pageType,
				FilePath:     c.storePage(canon, pageType, text),
				Text:         text,
			})
		}

		if item.depth < c.Cfg.MaxDepth {
			for _, link := range page.Links {
				if !sameSite(link.URL, entryHost) {
					continue
				}
				lc := urlnorm.CanonicalPageURL(link.URL)
				if _, ok := queued[lc]; ok {
					continue
				}
				if c.Visited.Contains(lc) {
					continue
				}
				score := ScoreLink(link.URL, link.Text, c.Cfg.Score)
				if score < c.Cfg.ScoreThreshold {
					continue
				}
				queued[lc] = struct{}{}
				queue.push(frontierItem{url: link.URL, score: score, depth: item.depth + 1})
			}
		}
	}

	if len(res.Pages) == 0 {
		res.Status = StatusNoContent
	} else {
		res.Status = StatusSuccess
	}
	return res
}

// storePage writes the page text under the content dir and returns the
// path. An empty content dir keeps pages in memory only.
func (c *Crawler) storePage(canonicalURL, pageType, text string) string {
	if c.Cfg.ContentDir == "" {
		return ""
	}
	name := urlnorm.SafeFilename(canonicalURL) + "__" + pageType + ".txt"
	path := filepath.Join(c.Cfg.ContentDir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		c.Log.Warn().Str("path", path).Err(err).Msg("failed to store page content")
		return ""
	}
	return path
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// sameSite accepts links on the entry host or any of its subdomains.
func sameSite(rawURL, entryHost string) bool {
	h := hostOf(rawURL)
	return h == entryHost || strings.HasSuffix(h, "."+entryHost)
}
