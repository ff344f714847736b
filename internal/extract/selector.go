// Package extract turns normalized receipt lines into scored field candidates.
package extract

import (
	"sort"
)

// DefaultTopK is how many candidates a field exposes for review.
const DefaultTopK = 5

// Candidate is one parsed value with its heuristic confidence. Confidence is
// only meaningful for ranking within a single field.
type Candidate[T any] struct {
	Raw        string  `json:"raw_text"`
	Value      T       `json:"value"`
	Confidence float64 `json:"confidence"`
	LineIndex  int     `json:"source_line_index"`
}

// Result is the best candidate of a field plus its ranked alternatives.
type Result[T any] struct {
	Best         *Candidate[T]  `json:"best"`
	Alternatives []Candidate[T] `json:"alternatives"`
}

// Found reports whether any candidate exists.
func (r Result[T]) Found() bool { return r.Best != nil }

// Value returns the best value, or the zero value when nothing matched.
func (r Result[T]) Value() T {
	if r.Best == nil {
		var zero T
		return zero
	}
	return r.Best.Value
}

// Confidence returns the best confidence, or 0 when nothing matched.
func (r Result[T]) Confidence() float64 {
	if r.Best == nil {
		return 0
	}
	return r.Best.Confidence
}

// Select ranks candidates by descending confidence, keeping discovery order
// on ties, and keeps the top k (k <= 0 means DefaultTopK).
func Select[T any](cands []Candidate[T], k int) Result[T] {
	if len(cands) == 0 {
		return Result[T]{Alternatives: []Candidate[T]{}}
	}
	if k <= 0 {
		k = DefaultTopK
	}
	ranked := make([]Candidate[T], len(cands))
	copy(ranked, cands)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	best := ranked[0]
	return Result[T]{Best: &best, Alternatives: ranked}
}

// selectWithBest puts the candidate at bestIdx first and ranks the rest.
// Used where the winning rule is not confidence, as for amounts.
func selectWithBest[T any](cands []Candidate[T], bestIdx, k int) Result[T] {
	if len(cands) == 0 {
		return Result[T]{Alternatives: []Candidate[T]{}}
	}
	if k <= 0 {
		k = DefaultTopK
	}
	rest := make([]Candidate[T], 0, len(cands)-1)
	rest = append(rest, cands[:bestIdx]...)
	rest = append(rest, cands[bestIdx+1:]...)
	best := cands[bestIdx]
	alts := make([]Candidate[T], 0, k)
	alts = append(alts, best)
	if k > 1 {
		alts = append(alts, Select(rest, k-1).Alternatives...)
	}
	return Result[T]{Best: &best, Alternatives: alts}
}

// dedupe keeps the first candidate for each raw match.
type dedupe map[string]struct{}

func (d dedupe) first(raw string) bool {
	if _, ok := d[raw]; ok {
		return false
	}
	d[raw] = struct{}{}
	return true
}
