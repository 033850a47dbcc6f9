package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// RodFetcher renders pages in a real browser (via rod) so that JS-built
// contact pages expose their content before extraction.
type RodFetcher struct {
	BrowserURL string
	Timeout    time.Duration
	Settle     time.Duration
}

func NewRodFetcher(browserURL string, timeout, settle time.Duration) *RodFetcher {
	return &RodFetcher{BrowserURL: browserURL, Timeout: timeout, Settle: settle}
}

func (r *RodFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}

	// Prepare browser with context and timeout
	browser := rod.New().Context(ctx).Timeout(r.Timeout)
	if r.BrowserURL != "" {
		browser = browser.ControlURL(r.BrowserURL)
	}

	if err := browser.Connect(); err != nil {
		return nil, err
	}
	defer browser.MustClose()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	defer page.MustClose()

	// The first document response on the page is the main navigation; its
	// status distinguishes HTTP errors from render failures.
	var navResp proto.NetworkResponseReceived
	waitResp := page.WaitEvent(&navResp)

	if err := page.Navigate(u.String()); err != nil {
		return nil, err
	}
	waitResp()

	if err := page.WaitLoad(); err != nil {
		return nil, err
	}
	if r.Settle > 0 {
		time.Sleep(r.Settle)
	}

	htmlStr, err := page.HTML()
	if err != nil {
		return nil, err
	}

	finalURL := u.String()
	if info, err := page.Info(); err == nil && info.URL != "" && info.URL != "about:blank" {
		finalURL = info.URL
	}
	final, err := url.Parse(finalURL)
	if err != nil {
		final = u
	}

	statusCode := 200
	if navResp.Response != nil && navResp.Response.Status != 0 {
		statusCode = navResp.Response.Status
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return &Page{URL: finalURL, HTML: htmlStr, StatusCode: statusCode}, nil
	}

	links := make([]Link, 0)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		if !linkURL.IsAbs() {
			linkURL = final.ResolveReference(linkURL)
		}
		if linkURL.Scheme != "http" && linkURL.Scheme != "https" {
			return
		}
		linkURL.Fragment = ""
		links = append(links, Link{
			URL:  linkURL.String(),
			Text: strings.TrimSpace(sel.Text()),
		})
	})

	title := strings.TrimSpace(doc.Find("title").First().Text())

	return &Page{
		URL:        finalURL,
		HTML:       htmlStr,
		Title:      title,
		Links:      links,
		StatusCode: statusCode,
	}, nil
}
