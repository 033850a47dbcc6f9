package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ScrapeStatus is the closed set of site-level fetch outcomes. Program
// logic switches on the enum; Label renders the stable report vocabulary.
type ScrapeStatus int

const (
	StatusUnknown ScrapeStatus = iota
	StatusSuccess
	StatusInvalidURL
	StatusAlreadyProcessed
	StatusRobotsDisallowed
	StatusTimeout
	StatusDNSError
	StatusConnectionRefused
	StatusBrowserError
	StatusHTTPError
	StatusNoContent
	StatusMaxRedirects
	StatusGenericError
)

var statusNames = map[ScrapeStatus]string{
	StatusUnknown:           "Unknown",
	StatusSuccess:           "Success",
	StatusInvalidURL:        "InvalidURL",
	StatusAlreadyProcessed:  "Already_Processed",
	StatusRobotsDisallowed:  "RobotsDisallowed",
	StatusTimeout:           "TimeoutError",
	StatusDNSError:          "DNSError",
	StatusConnectionRefused: "ConnectionRefused",
	StatusBrowserError:      "BrowserError",
	StatusHTTPError:         "HTTPError",
	StatusNoContent:         "NoContentScraped",
	StatusMaxRedirects:      "MaxRedirects_InputURL",
	StatusGenericError:      "GenericScrapeError",
}

func (s ScrapeStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Label renders a status for report columns; HTTP errors carry the code.
func Label(s ScrapeStatus, httpCode int) string {
	if s == StatusHTTPError && httpCode > 0 {
		return fmt.Sprintf("HTTPError_%d", httpCode)
	}
	return s.String()
}

// ParseStatusLabel maps a report label back to the enum, splitting off the
// HTTP code where present. Unrecognized labels map to StatusUnknown.
func ParseStatusLabel(label string) (ScrapeStatus, int) {
	if code, ok := strings.CutPrefix(label, "HTTPError_"); ok {
		var n int
		fmt.Sscanf(code, "%d", &n)
		return StatusHTTPError, n
	}
	for s, name := range statusNames {
		if name == label {
			return s, 0
		}
	}
	return StatusUnknown, 0
}

// Link is an outbound anchor with its visible text.
type Link struct {
	URL  string
	Text string
}

// Page is one rendered document as the Fetcher returns it.
type Page struct {
	URL        string // final URL after redirects
	HTML       string
	Title      string
	Links      []Link
	StatusCode int
}

// Fetcher renders a URL into a Page. The production implementation drives
// a headless browser; tests substitute an in-memory fake.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// PageResult is one stored page of a scraped site.
type PageResult struct {
	URL          string
	CanonicalURL string
	PageType     string
	FilePath     string
	Text         string
}

// SiteResult is the outcome of crawling one canonical site.
type SiteResult struct {
	CanonicalEntryURL string
	Pages             []PageResult
	Status            ScrapeStatus
	HTTPCode          int
}

// StatusLabel renders the site's status for reports.
func (r *SiteResult) StatusLabel() string {
	return Label(r.Status, r.HTTPCode)
}

// VisitRegistry is the run-wide set of canonical page URLs already landed
// on, shared across all site crawls in a run.
type VisitRegistry struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewVisitRegistry() *VisitRegistry {
	return &VisitRegistry{seen: make(map[string]struct{})}
}

// Add records a canonical URL and reports whether it was new.
func (v *VisitRegistry) Add(canonical string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[canonical]; ok {
		return false
	}
	v.seen[canonical] = struct{}{}
	return true
}

// Contains reports whether a canonical URL was already landed on.
func (v *VisitRegistry) Contains(canonical string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[canonical]
	return ok
}
