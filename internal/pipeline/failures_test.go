package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed_rows.csv")

	fl, err := NewFailureLog(path)
	require.NoError(t, err)

	fl.Record(3, "Acme GmbH", "acme.de", "Scraping_TimeoutError", "TimeoutError",
		map[string]any{"canonical_url": "http://acme.de"})
	fl.Record(4, "Beta AG", "none", "URL_Validation_InvalidOrMissing", "invalid_input_url", nil)
	require.NoError(t, fl.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, failureLogHeader, records[0])
	assert.Equal(t, "3", records[1][1])
	assert.Equal(t, "Scraping_TimeoutError", records[1][4])
	assert.Contains(t, records[1][6], `"canonical_url":"http://acme.de"`)
	assert.Equal(t, "{}", records[2][6])
}

func TestFailureLogConcurrentRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed_rows.csv")

	fl, err := NewFailureLog(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fl.Record(i, "Co", "co.de", "Scraping_DNSError", "DNSError", nil)
		}(i)
	}
	wg.Wait()
	require.NoError(t, fl.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 21)
}
