package reports

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// NumberEntry is one reported phone number with its type and source page.
type NumberEntry struct {
	Number    string
	Type      string
	SourceURL string
}

// DetailedRow is one (input row, classified number) pair.
type DetailedRow struct {
	InputRowID     int
	CompanyName    string
	GivenURL       string
	CanonicalURL   string
	Number         string
	Type           string
	Classification string
	SourceURL      string
	ErrorTag       string
}

// SummaryRow is one input row with its outcome and top numbers.
type SummaryRow struct {
	InputRowID         int
	CompanyName        string
	GivenURL           string
	GivenPhoneNumber   string
	NormalizedGiven    string
	Description        string
	CanonicalURL       string
	ScrapeStatus       string
	Outcome            string
	Fault              string
	RunID              string
	TargetCountryCodes string
	Top                [3]NumberEntry
}

// AttritionRow records why a row produced no contact.
type AttritionRow struct {
	InputRowID        int
	CompanyName       string
	GivenURL          string
	Reason            string
	Fault             string
	RelevantCanonical string
	LLMErrorDetail    string
	Timestamp         time.Time
}

// TopContactsRow is one canonical site with its best numbers, aggregated
// across every input company that mapped to the site.
type TopContactsRow struct {
	CompanyName  string
	CanonicalURL string
	Numbers      []NumberEntry
}

// DomainSummaryRow is the per-canonical-site rollup.
type DomainSummaryRow struct {
	CanonicalURL      string
	CompanyNames      string
	InputRows         int
	ScrapeStatus      string
	RegexCandidates   int
	LLMCallOutcome    string
	PrimaryCount      int
	SecondaryCount    int
	SupportCount      int
	LowRelevanceCount int
	NonBusinessCount  int
}

// writeWorkbook writes a single-sheet xlsx with a header row.
func writeWorkbook(path string, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
