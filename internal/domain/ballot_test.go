package domain

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

func TestOfflineBallotShape(t *testing.T) {
	seat := Seat{ID: 3, Name: "Pragmatist", Provider: "google", Model: "gemini-2.5-flash"}

	for _, b := range []Ballot{
		OfflineBallot(seat),
		FailedBallot(seat, StatusTimeout, "deadline exceeded"),
		FailedBallot(seat, StatusError, "invalid response"),
	} {
		t.Run(string(b.Status), func(t *testing.T) {
			assert.Equal(t, StanceAbstain, b.Stance)
			assert.Zero(t, b.Score)
			assert.Zero(t, b.Confidence)
			assert.NotNil(t, b.KeyPoints)
			assert.Empty(t, b.KeyPoints)
			assert.NotNil(t, b.Counterpoints)
			assert.Empty(t, b.Counterpoints)
			assert.NotNil(t, b.RiskFlags)
			assert.Empty(t, b.RiskFlags)
			assert.False(t, b.Online())
			assert.Equal(t, seat.ID, b.SeatID)
		})
	}
	assert.Empty(t, OfflineBallot(seat).Error)
}

func TestParseStance(t *testing.T) {
	tests := []struct {
		in   string
		want Stance
		ok   bool
	}{
		{"approve", StanceApprove, true},
		{"  BLOCK ", StanceBlock, true},
		{"Revise", StanceRevise, true},
		{"abstain", StanceAbstain, true},
		{"reject", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseStance(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 100.0, ClampScore(150))
	assert.Equal(t, 0.0, ClampScore(-3))
	assert.Equal(t, 42.5, ClampScore(42.5))
	assert.Equal(t, 0.0, ClampScore(math.NaN()))
	assert.Equal(t, 0.0, ClampConfidence(-0.2))
	assert.Equal(t, 1.0, ClampConfidence(1.7))
	assert.Equal(t, 0.0, ClampConfidence(math.NaN()))
}

func TestClampProperties(t *testing.T) {
	score := func(v float64) bool {
		c := ClampScore(v)
		return c >= 0 && c <= MaxScore
	}
	confidence := func(v float64) bool {
		c := ClampConfidence(v)
		return c >= 0 && c <= 1
	}
	assert.NoError(t, quick.Check(score, nil))
	assert.NoError(t, quick.Check(confidence, nil))
}
