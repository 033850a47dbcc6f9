package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/phonescout/internal/scraper"
)

func page(url, text string) scraper.PageResult {
	return scraper.PageResult{URL: url, CanonicalURL: url, Text: text}
}

func TestExtractFindsCommonFormats(t *testing.T) {
	e := New(300, 7)

	cases := []struct {
		name string
		text string
	}{
		{"e164", "Rufen Sie uns an: +49 30 12345678 oder schreiben Sie uns."},
		{"double zero prefix", "Zentrale: 0049 30 12345678"},
		{"national with parens", "Telefon: (030) 1234 5678"},
		{"national with dashes", "Tel. 030-123-45678"},
		{"slash separated", "Fon 089/1234567"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Extract([]scraper.PageResult{page("http://example.com/kontakt", tc.text)})
			require.Len(t, got, 1, "text: %s", tc.text)
			assert.Equal(t, "http://example.com/kontakt", got[0].SourceURL)
		})
	}
}

func TestExtractSkipsShortAndDateValues(t *testing.T) {
	e := New(300, 7)
	text := "Gegründet am 01.02.2024. Zimmer 1234. Tel: +49 30 12345678."
	got := e.Extract([]scraper.PageResult{page("http://example.com", text)})

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Number, "12345678")
}

func TestExtractSnippetWindow(t *testing.T) {
	e := New(60, 7)
	pad := strings.Repeat("x ", 200)
	text := pad + "Unsere   Hotline: +49 30 12345678 erreichen Sie täglich. " + pad

	got := e.Extract([]scraper.PageResult{page("http://example.com", text)})
	require.Len(t, got, 1)

	snippet := got[0].Snippet
	assert.Contains(t, snippet, "+49 30 12345678")
	assert.Contains(t, snippet, "Hotline:")
	assert.NotContains(t, snippet, "  ", "snippet whitespace must be collapsed")
	assert.Less(t, len(snippet), 120)
}

func TestExtractDedupsPerPage(t *testing.T) {
	e := New(300, 7)
	text := "Tel: +49 30 12345678 ... Fax-Hinweis: +49 30 12345678"
	got := e.Extract([]scraper.PageResult{page("http://example.com", text)})
	require.Len(t, got, 1)

	// Same number on a different page is kept: its source matters.
	got = e.Extract([]scraper.PageResult{
		page("http://example.com/kontakt", text),
		page("http://example.com/impressum", text),
	})
	require.Len(t, got, 2)
}

func TestExtractEmptyPages(t *testing.T) {
	e := New(300, 7)
	if got := e.Extract(nil); got != nil {
		t.Fatalf("expected nil for no pages, got %v", got)
	}
	got := e.Extract([]scraper.PageResult{page("http://example.com", "no numbers here")})
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}
