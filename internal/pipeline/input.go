package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ncecere/phonescout/internal/model"
)

// columnRenames maps input spreadsheet headers (German export plus the
// pipeline's own names) to canonical column names.
var columnRenames = map[string]string{
	"unternehmen":        "CompanyName",
	"webseite":           "GivenURL",
	"telefonnummer":      "GivenPhoneNumber",
	"beschreibung":       "Description",
	"companyname":        "CompanyName",
	"givenurl":           "GivenURL",
	"givenphonenumber":   "GivenPhoneNumber",
	"description":        "Description",
	"targetcountrycodes": "TargetCountryCodes",
}

// LoadRows reads the input workbook (xlsx, or csv by extension), applies
// the header rename map, the row range, and the consecutive-empty-row
// stop. Row indices are 1-based over the data rows of the full file, so a
// range refers to the same rows regardless of earlier runs.
func LoadRows(path, rowRange string, emptyRowStop int, defaultCountryCodes []string) ([]model.CompanyRow, error) {
	rng, err := ParseRowRange(rowRange)
	if err != nil {
		return nil, err
	}

	var records [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = readCSV(path)
	default:
		records, err = readXLSX(path)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input file %s has no header row", path)
	}

	cols := make(map[string]int)
	for i, name := range records[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := columnRenames[key]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}
	if _, ok := cols["GivenURL"]; !ok {
		return nil, fmt.Errorf("input file %s has no URL column (GivenURL/Webseite)", path)
	}

	cell := func(rec []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	var rows []model.CompanyRow
	emptyStreak := 0
	for i, rec := range records[1:] {
		idx := i + 1

		if isEmptyRecord(rec) {
			emptyStreak++
			if !rng.Bounded() && emptyRowStop > 0 && emptyStreak >= emptyRowStop {
				break
			}
			continue
		}
		emptyStreak = 0

		if !rng.Contains(idx) {
			continue
		}

		countryCodes := defaultCountryCodes
		if raw := cell(rec, "TargetCountryCodes"); raw != "" {
			countryCodes = splitList(raw)
		}

		rows = append(rows, model.CompanyRow{
			Index:              idx,
			CompanyName:        cell(rec, "CompanyName"),
			GivenURL:           cell(rec, "GivenURL"),
			GivenPhoneNumber:   cell(rec, "GivenPhoneNumber"),
			Description:        cell(rec, "Description"),
			TargetCountryCodes: countryCodes,
		})
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open input workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read input csv: %w", err)
	}
	return records, nil
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func splitList(v string) []string {
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
