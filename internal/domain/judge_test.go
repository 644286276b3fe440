package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func online(id SeatID, stance Stance, score, confidence float64) Ballot {
	return Ballot{
		SeatID: id, Status: StatusOnline, Stance: stance, Score: score, Confidence: confidence,
		RiskFlags: []string{}, KeyPoints: []string{}, Counterpoints: []string{},
	}
}

func TestContestRuleTruthTable(t *testing.T) {
	rule := DefaultContestRule()

	tests := []struct {
		name     string
		blocks   int
		variance float64
		want     bool
	}{
		{"two blocks low variance", 2, 5, true},
		{"no blocks high variance", 0, 30, true},
		{"one block moderate variance", 1, 10, false},
		{"variance exactly at threshold", 0, 25, false},
		{"three blocks", 3, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rule.Contested(tt.blocks, tt.variance))
		})
	}
}

func TestMeasureDispersion(t *testing.T) {
	rule := DefaultContestRule()

	t.Run("online ballots only", func(t *testing.T) {
		ballots := []Ballot{
			online(1, StanceApprove, 60, 0.9),
			online(2, StanceApprove, 80, 0.9),
			OfflineBallot(Seat{ID: 3}),
			FailedBallot(Seat{ID: 4}, StatusError, "boom"),
		}
		d := MeasureDispersion(ballots, rule)

		assert.Equal(t, 2, d.Online)
		assert.InDelta(t, 70, d.MeanScore, 1e-9)
		assert.InDelta(t, 10, d.ScoreVariance, 1e-9, "population standard deviation")
		assert.Zero(t, d.BlocksCount)
	})

	t.Run("blocks need confidence above threshold", func(t *testing.T) {
		ballots := []Ballot{
			online(1, StanceBlock, 20, 0.71),
			online(2, StanceBlock, 20, 0.7),
			online(3, StanceBlock, 20, 0.95),
		}
		d := MeasureDispersion(ballots, rule)

		assert.Equal(t, 2, d.BlocksCount)
		assert.Zero(t, d.ScoreVariance)
		assert.True(t, rule.Contested(d.BlocksCount, d.ScoreVariance))
	})

	t.Run("no online ballots", func(t *testing.T) {
		d := MeasureDispersion([]Ballot{OfflineBallot(Seat{ID: 1})}, rule)
		assert.Equal(t, Dispersion{}, d)
	})

	t.Run("spread scores contest without blocks", func(t *testing.T) {
		ballots := []Ballot{
			online(1, StanceApprove, 95, 0.8),
			online(2, StanceRevise, 30, 0.8),
		}
		d := MeasureDispersion(ballots, rule)

		assert.InDelta(t, 32.5, d.ScoreVariance, 1e-9)
		assert.True(t, rule.Contested(d.BlocksCount, d.ScoreVariance))
	})
}

func TestSummarize(t *testing.T) {
	ballots := []Ballot{
		online(1, StanceRevise, 55, 0.6),
		OfflineBallot(Seat{ID: 2, Name: "Skeptic"}),
	}
	summary := Summarize(ballots, Weights{1: 60, 2: 40})

	require.Len(t, summary, 2)
	assert.True(t, summary[0].Responded)
	assert.Equal(t, StanceRevise, summary[0].Stance)
	assert.Equal(t, 60, summary[0].Weight)

	assert.False(t, summary[1].Responded)
	assert.Empty(t, summary[1].Stance, "stance is only reported for responders")
	assert.Equal(t, 40, summary[1].Weight)
	assert.Equal(t, StatusOffline, summary[1].Status)
}

func TestTally(t *testing.T) {
	t.Run("weighted score and shares", func(t *testing.T) {
		ballots := []Ballot{
			online(1, StanceApprove, 90, 0.9),
			online(2, StanceBlock, 10, 0.9),
			OfflineBallot(Seat{ID: 3}),
		}
		got := Tally(ballots, Weights{1: 75, 2: 25, 3: 0})

		assert.InDelta(t, 70, got.Score, 1e-9)
		assert.InDelta(t, 0.75, got.StanceShare[StanceApprove], 1e-9)
		assert.InDelta(t, 0.25, got.StanceShare[StanceBlock], 1e-9)
		assert.Equal(t, StanceApprove, got.Leading)
	})

	t.Run("ties go to the cautious stance", func(t *testing.T) {
		ballots := []Ballot{
			online(1, StanceApprove, 90, 0.9),
			online(2, StanceRevise, 50, 0.9),
		}
		got := Tally(ballots, Weights{1: 50, 2: 50})
		assert.Equal(t, StanceRevise, got.Leading)
	})

	t.Run("zero weight falls back to plain mean", func(t *testing.T) {
		ballots := []Ballot{online(1, StanceApprove, 40, 0.9), online(2, StanceApprove, 60, 0.9)}
		got := Tally(ballots, Weights{1: 0, 2: 0, 3: 100})
		assert.InDelta(t, 50, got.Score, 1e-9)
		assert.Empty(t, got.StanceShare)
	})

	t.Run("nothing online", func(t *testing.T) {
		got := Tally(nil, Weights{})
		assert.Equal(t, StanceAbstain, got.Leading)
		assert.Zero(t, got.Score)
	})
}
