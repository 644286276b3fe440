package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// WeightTotal is the exact sum every weight mapping must reach.
const WeightTotal = 100

// Weights maps each seat to its integer share of the judge's vote.
// A valid mapping covers every roster seat and sums to WeightTotal.
type Weights map[SeatID]int

// DefaultWeights splits WeightTotal evenly across the roster. The remainder
// goes to the lowest seat ids, so seven seats get 15,15,14,14,14,14,14.
func DefaultWeights(r Roster) Weights {
	n := r.Len()
	if n == 0 {
		return Weights{}
	}
	base, rem := WeightTotal/n, WeightTotal%n
	w := make(Weights, n)
	for i, s := range r.Seats() {
		w[s.ID] = base
		if i < rem {
			w[s.ID]++
		}
	}
	return w
}

// Sum returns the total of all shares.
func (w Weights) Sum() int {
	total := 0
	for _, v := range w {
		total += v
	}
	return total
}

// Validate checks the mapping against the roster. It returns a
// *ValidationError listing every problem found.
func (w Weights) Validate(r Roster) error {
	verr := NewValidationError("weights")
	for _, s := range r.Seats() {
		if _, ok := w[s.ID]; !ok {
			verr.AddError(fmt.Sprintf("seat %d: weight missing", s.ID))
		}
	}
	for _, id := range w.ids() {
		if _, ok := r.Seat(id); !ok {
			verr.AddError(fmt.Sprintf("seat %d: %v", id, ErrUnknownSeat))
		}
		if w[id] < 0 {
			verr.AddError(fmt.Sprintf("seat %d: weight must not be negative", id))
		}
	}
	if sum := w.Sum(); sum != WeightTotal {
		verr.AddError(fmt.Sprintf("weights must sum to %d, got %d", WeightTotal, sum))
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	if w == nil {
		return nil
	}
	return maps.Clone(w)
}

// String renders the mapping in seat order, e.g. "1=15 2=15 3=14".
func (w Weights) String() string {
	parts := make([]string, 0, len(w))
	for _, id := range w.ids() {
		parts = append(parts, fmt.Sprintf("%d=%d", id, w[id]))
	}
	return strings.Join(parts, " ")
}

func (w Weights) ids() []SeatID {
	return slices.Sorted(maps.Keys(w))
}
