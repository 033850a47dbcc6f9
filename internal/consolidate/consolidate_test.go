package consolidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/phonescout/internal/model"
)

func TestConsolidateMergesDuplicateNumbers(t *testing.T) {
	outputs := []model.NumberOutput{
		{Number: "+493012345678", Type: "Support", Classification: model.ClassSupport, SourceURL: "http://example.com/support"},
		{Number: "+493012345678", Type: "Main Line", Classification: model.ClassPrimary, SourceURL: "http://example.com/kontakt"},
		{Number: "+493098765432", Type: "Fax", Classification: model.ClassLowRelevance, SourceURL: "http://example.com/impressum"},
	}

	details := Consolidate("Example GmbH", "http://example.com", outputs)
	require.Len(t, details.ConsolidatedNumbers, 2)

	first := details.ConsolidatedNumbers[0]
	assert.Equal(t, "+493012345678", first.Number)
	assert.Equal(t, model.ClassPrimary, first.Classification, "best classification wins")
	assert.Equal(t, "Main Line", first.Type)
	assert.Len(t, first.Sources, 2)

	second := details.ConsolidatedNumbers[1]
	assert.Equal(t, "+493098765432", second.Number)
}

func TestConsolidateDeduplicatesSources(t *testing.T) {
	outputs := []model.NumberOutput{
		{Number: "+493012345678", Type: "Main Line", Classification: model.ClassPrimary, SourceURL: "http://example.com/kontakt"},
		{Number: "+493012345678", Type: "Main Line", Classification: model.ClassPrimary, SourceURL: "http://example.com/kontakt"},
		{Number: "+493012345678", Type: "Sales", Classification: model.ClassSecondary, SourceURL: "http://example.com/kontakt"},
	}

	details := Consolidate("Example GmbH", "http://example.com", outputs)
	require.Len(t, details.ConsolidatedNumbers, 1)

	// Same (source URL, type) pair appears once; a different type on the
	// same page is a distinct source.
	sources := details.ConsolidatedNumbers[0].Sources
	require.Len(t, sources, 2)
	assert.Equal(t, "Main Line", sources[0].Type)
	assert.Equal(t, "Sales", sources[1].Type)
}

func TestConsolidateKeepsErrorTaggedNumbers(t *testing.T) {
	outputs := []model.NumberOutput{
		{Number: "+493012345678", Type: "Main Line", Classification: model.ClassPrimary, SourceURL: "http://example.com/kontakt"},
		{Number: "030 999888", SourceURL: "http://example.com/impressum", ErrorTag: "Error_PersistentMismatchAfterRetries"},
	}

	details := Consolidate("Example GmbH", "http://example.com", outputs)
	require.Len(t, details.ConsolidatedNumbers, 2)

	var tagged *model.ConsolidatedNumber
	for i := range details.ConsolidatedNumbers {
		if details.ConsolidatedNumbers[i].ErrorTag != "" {
			tagged = &details.ConsolidatedNumbers[i]
		}
	}
	require.NotNil(t, tagged, "error-tagged number must survive consolidation")
	assert.Equal(t, "030 999888", tagged.Number)
	assert.Equal(t, "Error_PersistentMismatchAfterRetries", tagged.ErrorTag)
	require.Len(t, tagged.Sources, 1)
	assert.Equal(t, "http://example.com/impressum", tagged.Sources[0].SourceURL)
}

func TestConsolidateClassifiedOccurrenceClearsTag(t *testing.T) {
	outputs := []model.NumberOutput{
		{Number: "+493012345678", SourceURL: "http://example.com/a", ErrorTag: "Error_InitialJsonParse"},
		{Number: "+493012345678", Type: "Main Line", Classification: model.ClassPrimary, SourceURL: "http://example.com/b"},
	}

	details := Consolidate("Example GmbH", "http://example.com", outputs)
	require.Len(t, details.ConsolidatedNumbers, 1)
	assert.Empty(t, details.ConsolidatedNumbers[0].ErrorTag)
	assert.Equal(t, model.ClassPrimary, details.ConsolidatedNumbers[0].Classification)
}

func TestConsolidateDropsInvalidFormat(t *testing.T) {
	outputs := []model.NumberOutput{
		{Number: model.InvalidFormat, Type: "Unknown", Classification: model.ClassNonBusiness},
		{Number: "+493012345678", Type: "Main Line", Classification: model.ClassPrimary},
	}
	details := Consolidate("Example GmbH", "http://example.com", outputs)
	require.Len(t, details.ConsolidatedNumbers, 1)
}

func TestConsolidateSortOrder(t *testing.T) {
	outputs := []model.NumberOutput{
		{Number: "+491", Type: "Fax", Classification: model.ClassLowRelevance},
		{Number: "+492", Type: "Sales", Classification: model.ClassSecondary},
		{Number: "+493", Type: "Main Line", Classification: model.ClassPrimary},
		{Number: "+494", Type: "Headquarters", Classification: model.ClassPrimary},
		{Number: "+495", Type: "Hotline", Classification: model.ClassSecondary},
	}
	details := Consolidate("X", "http://example.com", outputs)

	var got []string
	for _, n := range details.ConsolidatedNumbers {
		got = append(got, n.Number)
	}
	// Primary before Secondary before Low Relevance; within a tier the
	// stronger type first.
	assert.Equal(t, []string{"+493", "+494", "+492", "+495", "+491"}, got)
}

func TestConsolidateTieBreaksOnNumber(t *testing.T) {
	outputs := []model.NumberOutput{
		{Number: "+49222", Type: "Main Line", Classification: model.ClassPrimary},
		{Number: "+49111", Type: "Main Line", Classification: model.ClassPrimary},
	}
	details := Consolidate("X", "http://example.com", outputs)
	assert.Equal(t, "+49111", details.ConsolidatedNumbers[0].Number)
}

func TestRankUnknownValuesSortLast(t *testing.T) {
	if ClassificationRank("Wat") <= ClassificationRank(model.ClassNonBusiness) {
		t.Fatalf("unknown classification must rank below Non-Business")
	}
	if TypeRank("Wat") <= TypeRank("Unknown") {
		t.Fatalf("unknown type must rank below Unknown")
	}
}
