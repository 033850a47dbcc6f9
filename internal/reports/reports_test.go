package reports

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ncecere/phonescout/internal/model"
)

func TestSelectTopContacts(t *testing.T) {
	numbers := []model.ConsolidatedNumber{
		{Number: "+3221234567", Type: "Main Line", Classification: model.ClassPrimary,
			Sources: []model.Source{{SourceURL: "http://example.be/contact"}}},
		{Number: "+49301234567", Type: "Sales", Classification: model.ClassSecondary,
			Sources: []model.Source{{SourceURL: "http://example.de/kontakt"}}},
		{Number: "+49309999999", Type: model.TypeFax, Classification: model.ClassPrimary},
		{Number: "+431513100", Type: "Support", Classification: model.ClassNonBusiness},
		{Number: "+41441234567", Type: model.TypeMobile, Classification: model.ClassPrimary},
		{Number: "+49307777777", Type: "Main Line", Classification: model.ClassPrimary,
			ErrorTag: "Error_PersistentMismatchAfterRetries"},
	}

	top := SelectTopContacts(numbers)

	require.Len(t, top, 2)
	assert.Equal(t, "+49301234567", top[0].Number, "preferred country code ranks first")
	assert.Equal(t, "http://example.de/kontakt", top[0].SourceURL)
	assert.Equal(t, "+3221234567", top[1].Number)
}

func TestSelectTopContactsCapsAtThree(t *testing.T) {
	var numbers []model.ConsolidatedNumber
	for _, n := range []string{"+49301", "+49302", "+49303", "+49304"} {
		numbers = append(numbers, model.ConsolidatedNumber{
			Number: n + "234567", Type: "Main Line", Classification: model.ClassPrimary,
		})
	}
	assert.Len(t, SelectTopContacts(numbers), 3)
}

func TestAggregateCompanyName(t *testing.T) {
	assert.Equal(t, "Acme GmbH",
		AggregateCompanyName("http://acme.de", []string{"Acme GmbH", "Acme GmbH", ""}))

	assert.Equal(t, "acme.de - Acme GmbH - Acme Logistik",
		AggregateCompanyName("http://acme.de", []string{"Acme Logistik", "Acme GmbH"}))

	assert.Equal(t, "acme.de", AggregateCompanyName("http://acme.de", nil))
}

func TestWriteTopContactsWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top.xlsx")
	rows := []TopContactsRow{
		{
			CompanyName:  "Acme GmbH",
			CanonicalURL: "http://acme.de",
			Numbers: []NumberEntry{
				{Number: "+49301234567", Type: "Main Line", SourceURL: "http://acme.de/kontakt"},
			},
		},
	}
	require.NoError(t, WriteTopContacts(path, rows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CompanyName", got[0][0])
	assert.Equal(t, "Acme GmbH", got[1][0])
	assert.Equal(t, "+49301234567", got[1][2])
	assert.Equal(t, "http://acme.de/kontakt", got[1][4])
}

func TestWriteFinalProcessedSkipsEmptyRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final.xlsx")
	rows := []TopContactsRow{
		{CompanyName: "No Numbers AG", CanonicalURL: "http://none.de"},
		{CompanyName: "Acme GmbH", CanonicalURL: "http://acme.de",
			Numbers: []NumberEntry{{Number: "+49301234567", Type: "Main Line"}}},
	}
	require.NoError(t, WriteFinalProcessed(path, rows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, got, 2, "header plus the one site with a number")
	assert.Equal(t, "Acme GmbH", got[1][0])
}

func TestWriteAttrition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attrition.xlsx")
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := []AttritionRow{
		{InputRowID: 7, CompanyName: "Acme GmbH", GivenURL: "acme.de",
			Reason: "ScrapingFailed_Canonical_Network", Fault: "Website Issue",
			RelevantCanonical: "http://acme.de", Timestamp: ts},
	}
	require.NoError(t, WriteAttrition(path, rows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Final_Row_Outcome_Reason", got[0][3])
	assert.Equal(t, "ScrapingFailed_Canonical_Network", got[1][3])
	assert.Equal(t, "2025-06-01T12:00:00Z", got[1][7])
}

func TestWriteRunMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_metrics.md")
	d := RunMetricsData{
		RunID:     "20250601_120000_abcd1234",
		InputFile: "input.xlsx",
		Started:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Finished:  time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
		InputRows: 10,
	}
	d.Metrics.RowOutcomes = map[string]int64{"Contact_Successfully_Extracted": 8}

	require.NoError(t, WriteRunMetrics(path, d))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# Run Metrics: 20250601_120000_abcd1234")
	assert.Contains(t, string(raw), "Contact_Successfully_Extracted | 8")
	assert.Contains(t, string(raw), "Duration: 5m0s")
}
