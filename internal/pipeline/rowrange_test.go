package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRowRange(t *testing.T) {
	tests := []struct {
		expr string
		want RowRange
	}{
		{"", RowRange{}},
		{"0", RowRange{}},
		{"7", RowRange{Start: 7, End: 7}},
		{"2-5", RowRange{Start: 2, End: 5}},
		{"10-", RowRange{Start: 10}},
		{"-20", RowRange{End: 20}},
		{" 3-4 ", RowRange{Start: 3, End: 4}},
	}
	for _, tt := range tests {
		got, err := ParseRowRange(tt.expr)
		require.NoError(t, err, "expr %q", tt.expr)
		assert.Equal(t, tt.want, got, "expr %q", tt.expr)
	}
}

func TestParseRowRangeRejectsGarbage(t *testing.T) {
	for _, expr := range []string{"abc", "-", "5-2", "0-3", "1-x"} {
		_, err := ParseRowRange(expr)
		assert.Error(t, err, "expr %q", expr)
	}
}

func TestRowRangeContains(t *testing.T) {
	all, _ := ParseRowRange("")
	assert.True(t, all.Contains(1))
	assert.True(t, all.Contains(99999))
	assert.False(t, all.Bounded())

	r, _ := ParseRowRange("3-5")
	assert.False(t, r.Contains(2))
	assert.True(t, r.Contains(3))
	assert.True(t, r.Contains(5))
	assert.False(t, r.Contains(6))
	assert.True(t, r.Bounded())
}
