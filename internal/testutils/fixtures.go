// Package testutils holds test doubles and fixtures shared by the senate
// packages' tests.
package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/ghostpass/senate/internal/domain"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestRoster returns n enabled seats on the "mock" provider.
func TestRoster(n int) domain.Roster {
	seats := make([]domain.Seat, n)
	for i := range seats {
		id := domain.SeatID(i + 1)
		seats[i] = domain.Seat{
			ID:       id,
			Name:     fmt.Sprintf("Seat %d", id),
			Provider: "mock",
			Model:    fmt.Sprintf("mock-%d", id),
			Enabled:  true,
		}
	}
	return domain.MustRoster(seats)
}

// OnlineBallot builds a responding ballot.
func OnlineBallot(id domain.SeatID, stance domain.Stance, score, confidence float64, keyPoints ...string) domain.Ballot {
	if keyPoints == nil {
		keyPoints = []string{}
	}
	return domain.Ballot{
		SeatID:        id,
		SeatName:      fmt.Sprintf("Seat %d", id),
		Provider:      "mock",
		Model:         fmt.Sprintf("mock-%d", id),
		Status:        domain.StatusOnline,
		Stance:        stance,
		Score:         score,
		Confidence:    confidence,
		RiskFlags:     []string{},
		KeyPoints:     keyPoints,
		Counterpoints: []string{},
	}
}

// Verdict is the seat response shape, for building model outputs.
type Verdict struct {
	Stance           string   `json:"stance"`
	Score            float64  `json:"score"`
	Confidence       float64  `json:"confidence"`
	RiskFlags        []string `json:"risk_flags"`
	KeyPoints        []string `json:"key_points"`
	Counterpoints    []string `json:"counterpoints"`
	RecommendedEdits []string `json:"recommended_edits,omitempty"`
}

// JSON encodes v.
func (v Verdict) JSON() string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
