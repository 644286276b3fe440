package domain

import (
	"math"
	"strings"
)

// BallotStatus records how a seat's evaluation settled.
type BallotStatus string

const (
	// StatusOnline means the seat answered with a parsable verdict.
	StatusOnline BallotStatus = "online"
	// StatusOffline means the seat was disabled or had no usable client.
	StatusOffline BallotStatus = "offline"
	// StatusTimeout means the seat's call exceeded its deadline.
	StatusTimeout BallotStatus = "timeout"
	// StatusError means the call failed or its output could not be parsed.
	StatusError BallotStatus = "error"
)

// Stance is a seat's vote on the input.
type Stance string

const (
	StanceApprove Stance = "approve"
	StanceRevise  Stance = "revise"
	StanceBlock   Stance = "block"
	StanceAbstain Stance = "abstain"
)

// ParseStance normalizes model output into a Stance.
// It reports false for anything outside the four known stances.
func ParseStance(s string) (Stance, bool) {
	switch st := Stance(strings.ToLower(strings.TrimSpace(s))); st {
	case StanceApprove, StanceRevise, StanceBlock, StanceAbstain:
		return st, true
	default:
		return "", false
	}
}

// Ballot limits.
const (
	MaxScore         = 100.0
	MaxKeyPoints     = 7
	MaxCounterpoints = 5
)

// Ballot is one seat's vote for one run. Exactly one ballot exists per seat
// per run; ballots are never modified after they are formed.
type Ballot struct {
	SeatID   SeatID       `json:"seat_id"`
	SeatName string       `json:"seat_name"`
	Provider string       `json:"provider"`
	Model    string       `json:"model"`
	Status   BallotStatus `json:"status"`
	Stance   Stance       `json:"stance"`

	// Score is clamped to [0, 100].
	Score float64 `json:"score"`

	// Confidence is clamped to [0, 1].
	Confidence float64 `json:"confidence"`

	RiskFlags        []string `json:"risk_flags"`
	KeyPoints        []string `json:"key_points"`
	Counterpoints    []string `json:"counterpoints"`
	RecommendedEdits []string `json:"recommended_edits,omitempty"`

	LatencyMS int64 `json:"latency_ms,omitempty"`
	TokensIn  int   `json:"tokens_in,omitempty"`
	TokensOut int   `json:"tokens_out,omitempty"`

	// Error is a short failure reason for timeout and error ballots.
	Error string `json:"error,omitempty"`
}

// Online reports whether the ballot contributes to numeric aggregates.
func (b Ballot) Online() bool { return b.Status == StatusOnline }

// OfflineBallot is the synthesized ballot for an unreachable seat.
func OfflineBallot(seat Seat) Ballot {
	return abstainBallot(seat, StatusOffline, "")
}

// FailedBallot builds a timeout or error ballot with abstain defaults.
func FailedBallot(seat Seat, status BallotStatus, reason string) Ballot {
	return abstainBallot(seat, status, reason)
}

func abstainBallot(seat Seat, status BallotStatus, reason string) Ballot {
	return Ballot{
		SeatID:        seat.ID,
		SeatName:      seat.Name,
		Provider:      seat.Provider,
		Model:         seat.Model,
		Status:        status,
		Stance:        StanceAbstain,
		RiskFlags:     []string{},
		KeyPoints:     []string{},
		Counterpoints: []string{},
		Error:         reason,
	}
}

// ClampScore forces a model-reported score into [0, 100]. NaN becomes 0.
func ClampScore(v float64) float64 { return clamp(v, 0, MaxScore) }

// ClampConfidence forces a model-reported confidence into [0, 1]. NaN becomes 0.
func ClampConfidence(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
