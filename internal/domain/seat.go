package domain

import (
	"fmt"
	"slices"
)

// RosterSize is the number of seats in the production senate.
const RosterSize = 7

// SeatID identifies one seat within a roster. Ids are dense and start at 1.
type SeatID int

// Seat describes one independent model-backed voter.
// Seats are immutable configuration and are snapshotted into every ballot
// they produce.
type Seat struct {
	// ID is the seat's position in the roster, from 1 to the roster length.
	ID SeatID `json:"seat_id" yaml:"id" validate:"required,min=1"`

	// Name is a short human label used in judge digests and dashboards.
	Name string `json:"name" yaml:"name" validate:"required,max=64"`

	// Provider names the registry provider that serves this seat
	// (openai, anthropic, google, openrouter).
	Provider string `json:"provider" yaml:"provider" validate:"required,max=32"`

	// Model is the provider-specific model identifier.
	Model string `json:"model" yaml:"model" validate:"required,max=128"`

	// Enabled marks the seat as reachable. Disabled seats still produce an
	// offline ballot so the ballot count never changes.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Key returns the registry lookup key in provider/model form.
func (s Seat) Key() string { return s.Provider + "/" + s.Model }

// Roster is an ordered, validated set of seats.
// The zero value is an empty roster; use NewRoster to build one.
type Roster struct {
	seats []Seat
}

// NewRoster validates the seats and returns an immutable roster.
// Seat ids must be unique and cover 1..len(seats) exactly.
func NewRoster(seats []Seat) (Roster, error) {
	verr := NewValidationError("roster")
	if len(seats) == 0 {
		verr.AddError("at least one seat is required")
		return Roster{}, verr
	}

	seen := make(map[SeatID]bool, len(seats))
	for _, s := range seats {
		switch {
		case s.ID < 1 || int(s.ID) > len(seats):
			verr.AddError(fmt.Sprintf("seat %d: id must be between 1 and %d", s.ID, len(seats)))
		case seen[s.ID]:
			verr.AddError(fmt.Sprintf("seat %d: duplicate id", s.ID))
		}
		seen[s.ID] = true
		if s.Provider == "" || s.Model == "" {
			verr.AddError(fmt.Sprintf("seat %d: provider and model are required", s.ID))
		}
	}
	if verr.HasErrors() {
		return Roster{}, verr
	}

	ordered := slices.Clone(seats)
	slices.SortFunc(ordered, func(a, b Seat) int { return int(a.ID) - int(b.ID) })
	return Roster{seats: ordered}, nil
}

// MustRoster is NewRoster for static rosters known to be valid.
func MustRoster(seats []Seat) Roster {
	r, err := NewRoster(seats)
	if err != nil {
		panic(err)
	}
	return r
}

// Seats returns a copy of the seats in id order.
func (r Roster) Seats() []Seat { return slices.Clone(r.seats) }

// Len returns the number of seats.
func (r Roster) Len() int { return len(r.seats) }

// Seat looks up a seat by id.
func (r Roster) Seat(id SeatID) (Seat, bool) {
	if id < 1 || int(id) > len(r.seats) {
		return Seat{}, false
	}
	return r.seats[id-1], true
}

// Enabled returns how many seats are marked reachable.
func (r Roster) Enabled() int {
	n := 0
	for _, s := range r.seats {
		if s.Enabled {
			n++
		}
	}
	return n
}

// DefaultRoster is the production seven-seat senate.
func DefaultRoster() Roster {
	return MustRoster([]Seat{
		{ID: 1, Name: "Analyst", Provider: "openai", Model: "gpt-4.1", Enabled: true},
		{ID: 2, Name: "Skeptic", Provider: "anthropic", Model: "claude-4-sonnet", Enabled: true},
		{ID: 3, Name: "Pragmatist", Provider: "google", Model: "gemini-2.5-flash", Enabled: true},
		{ID: 4, Name: "Operator", Provider: "openai", Model: "gpt-4o-mini", Enabled: true},
		{ID: 5, Name: "Counsel", Provider: "anthropic", Model: "claude-3.5-haiku", Enabled: true},
		{ID: 6, Name: "Strategist", Provider: "google", Model: "gemini-2.5-pro", Enabled: true},
		{ID: 7, Name: "Outsider", Provider: "openrouter", Model: "meta-llama/llama-3.3-70b-instruct", Enabled: false},
	})
}
