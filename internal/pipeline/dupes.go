package pipeline

import (
	"strings"

	"github.com/ncecere/phonescout/internal/model"
	"github.com/ncecere/phonescout/internal/urlnorm"
)

// InputStats summarizes duplicate pressure in the input before any
// scraping happens; it feeds the run metrics report.
type InputStats struct {
	Rows                        int
	UniqueCompanyNames          int
	UniqueCanonicalURLs         int
	CompanyNamesWithDuplicates  int
	CanonicalURLsWithDuplicates int
	RowsWithDuplicateCompany    int
	RowsWithDuplicateURL        int
	RowsConsideredDuplicates    int
}

// ComputeInputStats derives per-input duplicate counts over company names
// and input-canonical URLs. Missing values never count as duplicates of
// each other.
func ComputeInputStats(rows []model.CompanyRow) InputStats {
	stats := InputStats{Rows: len(rows)}

	companyCounts := make(map[string]int)
	urlCounts := make(map[string]int)
	companies := make([]string, len(rows))
	urls := make([]string, len(rows))

	for i, row := range rows {
		name := strings.TrimSpace(row.CompanyName)
		companies[i] = name
		if name != "" {
			companyCounts[name]++
		}

		canonical := urlnorm.InputCanonicalURL(row.GivenURL)
		urls[i] = canonical
		if canonical != "" {
			urlCounts[canonical]++
		}
	}

	stats.UniqueCompanyNames = len(companyCounts)
	stats.UniqueCanonicalURLs = len(urlCounts)

	for _, n := range companyCounts {
		if n > 1 {
			stats.CompanyNamesWithDuplicates++
			stats.RowsWithDuplicateCompany += n
		}
	}
	for _, n := range urlCounts {
		if n > 1 {
			stats.CanonicalURLsWithDuplicates++
			stats.RowsWithDuplicateURL += n
		}
	}

	for i := range rows {
		dupCompany := companies[i] != "" && companyCounts[companies[i]] > 1
		dupURL := urls[i] != "" && urlCounts[urls[i]] > 1
		if dupCompany || dupURL {
			stats.RowsConsideredDuplicates++
		}
	}
	return stats
}
