package rfm

import (
	"cmp"
	"slices"
)

// Quartiles holds the index-based quartile boundaries of one metric across
// the scored population. Boundaries are taken at sorted[floor(p*n)] with no
// interpolation, so small populations collapse several boundaries.
type Quartiles[T any] struct {
	Q1, Q2, Q3 T
	compare    func(a, b T) int
}

// NewQuartiles computes boundaries for a non-empty slice of values. The
// input slice is not modified.
func NewQuartiles[T any](values []T, compare func(a, b T) int) Quartiles[T] {
	sorted := slices.Clone(values)
	slices.SortFunc(sorted, compare)

	n := len(sorted)
	return Quartiles[T]{
		Q1:      sorted[n*25/100],
		Q2:      sorted[n*50/100],
		Q3:      sorted[n*75/100],
		compare: compare,
	}
}

// Score maps a value to 1..4. With reverse set, lower values score higher.
func (q Quartiles[T]) Score(value T, reverse bool) int {
	var score int
	switch {
	case q.compare(value, q.Q1) <= 0:
		score = 1
	case q.compare(value, q.Q2) <= 0:
		score = 2
	case q.compare(value, q.Q3) <= 0:
		score = 3
	default:
		score = 4
	}
	if reverse {
		return 5 - score
	}
	return score
}

// IntQuartiles is NewQuartiles for plain integers.
func IntQuartiles(values []int) Quartiles[int] {
	return NewQuartiles(values, cmp.Compare[int])
}
