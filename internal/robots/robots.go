package robots

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

const maxRobotsBody = 512 * 1024

// Gate answers robots.txt allow/deny questions with a per-host cache.
// Fetch and parse failures fail open: a site whose robots.txt cannot be
// retrieved is treated as fully allowed.
type Gate struct {
	client *http.Client
	log    zerolog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

func NewGate(timeout time.Duration, log zerolog.Logger) *Gate {
	return &Gate{
		client: &http.Client{Timeout: timeout},
		log:    log,
		cache:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether userAgent may fetch pageURL. Unparseable page
// URLs are allowed; the scraper rejects those on its own terms.
func (g *Gate) Allowed(ctx context.Context, pageURL, userAgent string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := g.robotsFor(ctx, u)
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.FindGroup(userAgent).Test(path)
}

func (g *Gate) robotsFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := strings.ToLower(u.Scheme + "://" + u.Host)

	g.mu.Lock()
	if data, ok := g.cache[key]; ok {
		g.mu.Unlock()
		return data
	}
	g.mu.Unlock()

	data := g.fetch(ctx, key+"/robots.txt")

	g.mu.Lock()
	g.cache[key] = data
	g.mu.Unlock()
	return data
}

func (g *Gate) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Debug().Str("url", robotsURL).Err(err).Msg("robots fetch failed, allowing")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		g.log.Debug().Str("url", robotsURL).Err(err).Msg("robots parse failed, allowing")
		return nil
	}
	return data
}
