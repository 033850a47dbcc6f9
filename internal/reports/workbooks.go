package reports

import (
	"time"
)

// WriteDetailed writes one row per classified number.
func WriteDetailed(path string, rows []DetailedRow) error {
	header := []string{
		"InputRowID", "CompanyName", "GivenURL", "CanonicalURL",
		"Number", "Number_Type", "Number_Classification", "SourceURL", "ErrorTag",
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.InputRowID, r.CompanyName, r.GivenURL, r.CanonicalURL,
			r.Number, r.Type, r.Classification, r.SourceURL, r.ErrorTag,
		}
	}
	return writeWorkbook(path, header, out)
}

// WriteSummary writes one row per input row with its outcome and the top
// three numbers.
func WriteSummary(path string, rows []SummaryRow) error {
	header := []string{
		"InputRowID", "CompanyName", "GivenURL", "GivenPhoneNumber",
		"NormalizedGivenPhoneNumber", "Description", "CanonicalEntryURL",
		"ScrapeStatus", "Final_Row_Outcome_Reason", "Determined_Fault_Category",
		"Top_Number_1", "Top_Type_1", "Top_SourceURL_1",
		"Top_Number_2", "Top_Type_2", "Top_SourceURL_2",
		"Top_Number_3", "Top_Type_3", "Top_SourceURL_3",
		"TargetCountryCodes", "RunID",
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.InputRowID, r.CompanyName, r.GivenURL, r.GivenPhoneNumber,
			r.NormalizedGiven, r.Description, r.CanonicalURL,
			r.ScrapeStatus, r.Outcome, r.Fault,
			r.Top[0].Number, r.Top[0].Type, r.Top[0].SourceURL,
			r.Top[1].Number, r.Top[1].Type, r.Top[1].SourceURL,
			r.Top[2].Number, r.Top[2].Type, r.Top[2].SourceURL,
			r.TargetCountryCodes, r.RunID,
		}
	}
	return writeWorkbook(path, header, out)
}

// WriteAttrition writes the row attrition report: every input row that
// ended without an extracted contact.
func WriteAttrition(path string, rows []AttritionRow) error {
	header := []string{
		"InputRowID", "CompanyName", "GivenURL",
		"Final_Row_Outcome_Reason", "Determined_Fault_Category",
		"Relevant_Canonical_URLs", "LLM_Error_Detail_Summary",
		"Timestamp_Of_Determination",
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.InputRowID, r.CompanyName, r.GivenURL,
			r.Reason, r.Fault,
			r.RelevantCanonical, r.LLMErrorDetail,
			r.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return writeWorkbook(path, header, out)
}

// WriteTopContacts writes one row per canonical site with up to three
// preferred numbers.
func WriteTopContacts(path string, rows []TopContactsRow) error {
	header := []string{
		"CompanyName", "CanonicalEntryURL",
		"PhoneNumber_1", "PhoneNumber_1_Type", "PhoneNumber_1_SourceURL",
		"PhoneNumber_2", "PhoneNumber_2_Type", "PhoneNumber_2_SourceURL",
		"PhoneNumber_3", "PhoneNumber_3_Type", "PhoneNumber_3_SourceURL",
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		cells := []any{r.CompanyName, r.CanonicalURL}
		for j := 0; j < 3; j++ {
			var e NumberEntry
			if j < len(r.Numbers) {
				e = r.Numbers[j]
			}
			cells = append(cells, e.Number, e.Type, e.SourceURL)
		}
		out[i] = cells
	}
	return writeWorkbook(path, header, out)
}

// WriteFinalProcessed writes the post-processed contact list: only sites
// that kept at least one number after the Top Contacts filter, one line
// per site with its single best number.
func WriteFinalProcessed(path string, rows []TopContactsRow) error {
	header := []string{"CompanyName", "CanonicalEntryURL", "PhoneNumber", "PhoneNumber_Type", "SourceURL"}
	var out [][]any
	for _, r := range rows {
		if len(r.Numbers) == 0 {
			continue
		}
		best := r.Numbers[0]
		out = append(out, []any{r.CompanyName, r.CanonicalURL, best.Number, best.Type, best.SourceURL})
	}
	return writeWorkbook(path, header, out)
}

// WriteDomainSummary writes the per-canonical-site rollup.
func WriteDomainSummary(path string, rows []DomainSummaryRow) error {
	header := []string{
		"CanonicalEntryURL", "CompanyNames", "InputRows",
		"ScrapeStatus", "RegexCandidates", "LLMCallOutcome",
		"Primary", "Secondary", "Support", "LowRelevance", "NonBusiness",
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.CanonicalURL, r.CompanyNames, r.InputRows,
			r.ScrapeStatus, r.RegexCandidates, r.LLMCallOutcome,
			r.PrimaryCount, r.SecondaryCount, r.SupportCount,
			r.LowRelevanceCount, r.NonBusinessCount,
		}
	}
	return writeWorkbook(path, header, out)
}
