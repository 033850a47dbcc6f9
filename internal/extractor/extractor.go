package extractor

import (
	"regexp"
	"strings"

	"github.com/ncecere/phonescout/internal/model"
	"github.com/ncecere/phonescout/internal/scraper"
)

// candidatePattern matches international (+49, 0049) and national ((030),
// 030-) phone shapes with common separators. It over-matches on purpose;
// the digit minimum and the LLM sort out the rest.
var candidatePattern = regexp.MustCompile(`(?:\+|00)[1-9]\d{0,2}[\s\-./]*(?:\(0?\d{0,4}\)[\s\-./]*)?(?:\d[\s\-./]?){5,12}\d|\(?0\d{1,4}\)?[\s\-./]?(?:\d[\s\-./]?){4,12}\d`)

// datePattern rejects obvious calendar dates the candidate pattern would
// otherwise pick up (01.02.2024, 2024-01-02, 01/02/24).
var datePattern = regexp.MustCompile(`^(?:\d{1,2}[./-]\d{1,2}[./-]\d{2,4}|\d{4}[./-]\d{1,2}[./-]\d{1,2})$`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Extractor finds phone number candidates in scraped page text.
type Extractor struct {
	windowChars int
	minDigits   int
}

func New(windowChars, minDigits int) *Extractor {
	if windowChars <= 0 {
		windowChars = 300
	}
	if minDigits <= 0 {
		minDigits = 7
	}
	return &Extractor{windowChars: windowChars, minDigits: minDigits}
}

// Extract scans every page of a site and returns candidates with their
// source URL and a whitespace-collapsed snippet of surrounding text.
// Candidates are deduplicated per (digit sequence, source URL), keeping
// the first snippet found.
func (e *Extractor) Extract(pages []scraper.PageResult) []model.Candidate {
	var out []model.Candidate
	seen := make(map[string]struct{})

	for _, page := range pages {
		text := page.Text
		for _, loc := range candidatePattern.FindAllStringIndex(text, -1) {
			raw := strings.TrimSpace(text[loc[0]:loc[1]])

			digits := digitsOf(raw)
			if len(digits) < e.minDigits {
				continue
			}
			if datePattern.MatchString(raw) {
				continue
			}

			key := digits + "|" + page.URL
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			out = append(out, model.Candidate{
				Number:    raw,
				SourceURL: page.URL,
				Snippet:   e.snippet(text, loc[0], loc[1]),
			})
		}
	}
	return out
}

// snippet returns the collapsed text around a match, half the window on
// each side, aligned to rune boundaries.
func (e *Extractor) snippet(text string, start, end int) string {
	half := e.windowChars / 2

	from := start - half
	for from > 0 && !isRuneStart(text[from]) {
		from--
	}
	if from < 0 {
		from = 0
	}
	to := end + half
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !isRuneStart(text[to]) {
		to++
	}

	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text[from:to], " "))
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
