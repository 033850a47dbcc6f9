package consolidate

import (
	"sort"

	"github.com/ncecere/phonescout/internal/model"
)

var classificationRank = map[string]int{
	model.ClassPrimary:      0,
	model.ClassSecondary:    1,
	model.ClassSupport:      2,
	model.ClassLowRelevance: 3,
	model.ClassNonBusiness:  4,
}

var typeRank = map[string]int{
	"Main Line":         1,
	"Headquarters":      2,
	"Reception":         3,
	"Switchboard":       4,
	"Sales":             10,
	"Customer Service":  11,
	"Support":           12,
	"Technical Support": 13,
	"Service":           14,
	"Info-Line":         20,
	"Hotline":           21,
	"Department":        30,
	"Direct Dial":       40,
	"Extension":         41,
	"Mobile":            50,
	"Fax":               80,
	"Date":              90,
	"ID":                91,
	"Unknown":           99,
}

// ClassificationRank orders classifications from most to least relevant.
// Unknown values sort last.
func ClassificationRank(classification string) int {
	if r, ok := classificationRank[classification]; ok {
		return r
	}
	return len(classificationRank)
}

// TypeRank orders number types by how likely they are to be a company's
// main contact line. Unknown values sort last.
func TypeRank(numberType string) int {
	if r, ok := typeRank[numberType]; ok {
		return r
	}
	return 100
}

// Less is the comparator for consolidated numbers: classification tier,
// then type preference, then the number string for determinism.
func Less(a, b model.ConsolidatedNumber) bool {
	if ca, cb := ClassificationRank(a.Classification), ClassificationRank(b.Classification); ca != cb {
		return ca < cb
	}
	if ta, tb := TypeRank(a.Type), TypeRank(b.Type); ta != tb {
		return ta < tb
	}
	return a.Number < b.Number
}

// Consolidate merges the classified numbers of one canonical site: one
// entry per number with the best classification and type seen and every
// distinct (source URL, type) pair that reported it. Error-tagged outputs
// are kept so no candidate vanishes from the reports; a successful
// occurrence of the same number clears the tag. InvalidFormat entries are
// dropped.
func Consolidate(companyName, canonicalURL string, outputs []model.NumberOutput) *model.CompanyContactDetails {
	details := &model.CompanyContactDetails{
		CompanyName:       companyName,
		CanonicalEntryURL: canonicalURL,
	}

	byNumber := make(map[string]*model.ConsolidatedNumber)
	seenSources := make(map[string]map[model.Source]struct{})
	var order []string

	for _, out := range outputs {
		if out.Number == "" || out.Number == model.InvalidFormat {
			continue
		}
		entry, ok := byNumber[out.Number]
		if !ok {
			entry = &model.ConsolidatedNumber{
				Number:         out.Number,
				Type:           out.Type,
				Classification: out.Classification,
				ErrorTag:       out.ErrorTag,
			}
			byNumber[out.Number] = entry
			seenSources[out.Number] = make(map[model.Source]struct{})
			order = append(order, out.Number)
		}
		src := model.Source{
			Type:      out.Type,
			SourceURL: out.SourceURL,
		}
		if _, dup := seenSources[out.Number][src]; !dup {
			seenSources[out.Number][src] = struct{}{}
			src.Classification = out.Classification
			src.OriginalInputCompany = out.OriginalInputCompany
			entry.Sources = append(entry.Sources, src)
		}

		if out.ErrorTag != "" {
			continue
		}
		// A classified occurrence outranks any error record.
		entry.ErrorTag = ""

		// Best classification wins; on a tie the better type wins.
		if ClassificationRank(out.Classification) < ClassificationRank(entry.Classification) {
			entry.Classification = out.Classification
			entry.Type = out.Type
		} else if ClassificationRank(out.Classification) == ClassificationRank(entry.Classification) &&
			TypeRank(out.Type) < TypeRank(entry.Type) {
			entry.Type = out.Type
		}
	}

	for _, num := range order {
		details.ConsolidatedNumbers = append(details.ConsolidatedNumbers, *byNumber[num])
	}
	sort.SliceStable(details.ConsolidatedNumbers, func(i, j int) bool {
		return Less(details.ConsolidatedNumbers[i], details.ConsolidatedNumbers[j])
	})
	return details
}
