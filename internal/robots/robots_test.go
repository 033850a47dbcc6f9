package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestGate() *Gate {
	return NewGate(2*time.Second, zerolog.Nop())
}

func TestAllowedRespectsDisallow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer srv.Close()

	g := newTestGate()
	if !g.Allowed(context.Background(), srv.URL+"/contact", "phonescout") {
		t.Fatalf("expected /contact to be allowed")
	}
	if g.Allowed(context.Background(), srv.URL+"/private/page", "phonescout") {
		t.Fatalf("expected /private/page to be disallowed")
	}
}

func TestAllowedFailsOpenOnFetchError(t *testing.T) {
	g := newTestGate()
	// Nothing listens on this address.
	if !g.Allowed(context.Background(), "http://127.0.0.1:1/page", "phonescout") {
		t.Fatalf("expected fail-open when robots.txt is unreachable")
	}
}

func TestAllowedTreatsNotFoundAsAllowAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	g := newTestGate()
	if !g.Allowed(context.Background(), srv.URL+"/anything", "phonescout") {
		t.Fatalf("expected allow-all on 404 robots.txt")
	}
}

func TestRobotsFetchedOncePerHost(t *testing.T) {
	var fetches int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt64(&fetches, 1)
		}
		w.Write([]byte("User-agent: *\nAllow: /\n"))
	}))
	defer srv.Close()

	g := newTestGate()
	for i := 0; i < 5; i++ {
		g.Allowed(context.Background(), srv.URL+"/page", "phonescout")
	}
	if n := atomic.LoadInt64(&fetches); n != 1 {
		t.Fatalf("expected 1 robots fetch, got %d", n)
	}
}
