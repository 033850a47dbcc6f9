package scraper

import (
	"net/url"
	"strings"
)

// Page types drive content file naming and scrape metrics.
const (
	PageTypeContact  = "contact"
	PageTypeImprint  = "imprint"
	PageTypeLegal    = "legal"
	PageTypeHomepage = "homepage"
	PageTypeGeneral  = "general_content"
)

var pageTypeKeywords = []struct {
	pageType string
	keywords []string
}{
	{PageTypeContact, []string{"kontakt", "contact"}},
	{PageTypeImprint, []string{"impressum", "imprint"}},
	{PageTypeLegal, []string{"legal", "datenschutz", "privacy", "agb", "terms"}},
}

// ClassifyPageType buckets a fetched page by its URL path, falling back to
// the document title. The root path is always the homepage.
func ClassifyPageType(rawURL, title string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		path := strings.ToLower(strings.Trim(u.Path, "/"))
		if path == "" {
			return PageTypeHomepage
		}
		for _, entry := range pageTypeKeywords {
			for _, kw := range entry.keywords {
				if strings.Contains(path, kw) {
					return entry.pageType
				}
			}
		}
	}

	lowerTitle := strings.ToLower(title)
	if lowerTitle != "" {
		for _, entry := range pageTypeKeywords {
			for _, kw := range entry.keywords {
				if strings.Contains(lowerTitle, kw) {
					return entry.pageType
				}
			}
		}
	}
	return PageTypeGeneral
}
