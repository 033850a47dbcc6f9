package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// RowRange selects 1-based input rows, inclusive on both ends. A zero
// bound is open: {0,0} selects everything.
type RowRange struct {
	Start int
	End   int
}

// ParseRowRange reads the range grammar: "N-M", "N-", "-M", "N", and
// ""/"0" for all rows.
func ParseRowRange(expr string) (RowRange, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == "0" {
		return RowRange{}, nil
	}

	if !strings.Contains(expr, "-") {
		n, err := strconv.Atoi(expr)
		if err != nil || n < 1 {
			return RowRange{}, fmt.Errorf("invalid row range %q", expr)
		}
		return RowRange{Start: n, End: n}, nil
	}

	parts := strings.SplitN(expr, "-", 2)
	if parts[0] == "" && parts[1] == "" {
		return RowRange{}, fmt.Errorf("invalid row range %q", expr)
	}
	var r RowRange
	if parts[0] != "" {
		n, err := strconv.Atoi(parts[0])
		if err != nil || n < 1 {
			return RowRange{}, fmt.Errorf("invalid row range %q", expr)
		}
		r.Start = n
	}
	if parts[1] != "" {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 {
			return RowRange{}, fmt.Errorf("invalid row range %q", expr)
		}
		r.End = n
	}
	if r.Start > 0 && r.End > 0 && r.End < r.Start {
		return RowRange{}, fmt.Errorf("invalid row range %q: end before start", expr)
	}
	return r, nil
}

// Contains reports whether the 1-based row index falls in the range.
func (r RowRange) Contains(idx int) bool {
	if r.Start > 0 && idx < r.Start {
		return false
	}
	if r.End > 0 && idx > r.End {
		return false
	}
	return true
}

// Bounded reports whether the range has an upper bound.
func (r RowRange) Bounded() bool { return r.End > 0 }
