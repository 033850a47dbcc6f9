package reports

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ncecere/phonescout/internal/metrics"
)

// RunMetricsData is everything the markdown run report needs; the
// orchestrator fills it from the metrics registry and the input scan.
type RunMetricsData struct {
	RunID     string
	InputFile string
	RowRange  string
	Started   time.Time
	Finished  time.Time

	InputRows                   int
	UniqueCompanyNames          int
	UniqueCanonicalURLs         int
	CompanyNamesWithDuplicates  int
	CanonicalURLsWithDuplicates int
	RowsConsideredDuplicates    int

	SitesAttempted int
	ContactsFound  int

	Metrics metrics.Snapshot
}

// WriteRunMetrics renders the per-run markdown report.
func WriteRunMetrics(path string, d RunMetricsData) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Run Metrics: %s\n\n", d.RunID)
	fmt.Fprintf(&b, "- Input file: `%s`\n", d.InputFile)
	if d.RowRange != "" {
		fmt.Fprintf(&b, "- Row range: `%s`\n", d.RowRange)
	}
	fmt.Fprintf(&b, "- Started: %s\n", d.Started.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Finished: %s\n", d.Finished.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n\n", d.Finished.Sub(d.Started).Round(time.Second))

	b.WriteString("## Input\n\n")
	fmt.Fprintf(&b, "- Rows loaded: %d\n", d.InputRows)
	fmt.Fprintf(&b, "- Unique company names: %d (%d with duplicates)\n",
		d.UniqueCompanyNames, d.CompanyNamesWithDuplicates)
	fmt.Fprintf(&b, "- Unique canonical URLs: %d (%d with duplicates)\n",
		d.UniqueCanonicalURLs, d.CanonicalURLsWithDuplicates)
	fmt.Fprintf(&b, "- Rows considered duplicates: %d\n\n", d.RowsConsideredDuplicates)

	s := d.Metrics

	b.WriteString("## Rows\n\n")
	fmt.Fprintf(&b, "- Processed: %d\n", s.RowsProcessed)
	fmt.Fprintf(&b, "- Failed: %d\n\n", s.RowsFailed)
	writeCountTable(&b, "Outcome", s.RowOutcomes)
	writeCountTable(&b, "Fault category", s.Faults)

	b.WriteString("## Scraping\n\n")
	fmt.Fprintf(&b, "- Sites attempted: %d\n\n", d.SitesAttempted)
	writeCountTable(&b, "Scrape status", s.ScrapeStatus)
	writeCountTable(&b, "Pages by type", s.PagesByType)

	b.WriteString("## Extraction\n\n")
	fmt.Fprintf(&b, "- Sites with regex candidates: %d\n", s.SitesWithCandidates)
	fmt.Fprintf(&b, "- Sites without candidates: %d\n", s.SitesWithoutCandidates)
	fmt.Fprintf(&b, "- Regex candidates total: %d\n\n", s.RegexCandidatesTotal)

	b.WriteString("## LLM\n\n")
	fmt.Fprintf(&b, "- Calls: %d succeeded, %d failed\n", s.LLMCallsSuccess, s.LLMCallsFailed)
	fmt.Fprintf(&b, "- Numbers returned (raw): %d\n", s.LLMNumbersRaw)
	fmt.Fprintf(&b, "- Tokens: %d prompt, %d completion (%d calls reported usage)\n\n",
		s.PromptTokens, s.CompletionTokens, s.LLMCallsWithUsage)

	b.WriteString("## Results\n\n")
	fmt.Fprintf(&b, "- Sites with at least one contact: %d\n\n", d.ContactsFound)

	if len(s.TaskDurations) > 0 {
		b.WriteString("## Phase durations\n\n")
		names := make([]string, 0, len(s.TaskDurations))
		for k := range s.TaskDurations {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(&b, "- %s: %s\n", k, s.TaskDurations[k].Round(time.Millisecond))
		}
		b.WriteString("\n")
	}

	if len(s.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeCountTable(b *strings.Builder, title string, m map[string]int64) {
	if len(m) == 0 {
		return
	}
	fmt.Fprintf(b, "| %s | Count |\n| --- | --- |\n", title)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "| %s | %d |\n", k, m[k])
	}
	b.WriteString("\n")
}
