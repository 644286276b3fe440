package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights(DefaultRoster())

	assert.Equal(t, WeightTotal, w.Sum())
	assert.Equal(t, Weights{1: 15, 2: 15, 3: 14, 4: 14, 5: 14, 6: 14, 7: 14}, w)
	assert.NoError(t, w.Validate(DefaultRoster()))
	assert.Equal(t, "1=15 2=15 3=14 4=14 5=14 6=14 7=14", w.String())
}

func TestDefaultWeightsSmallRosters(t *testing.T) {
	for n := 1; n <= 12; n++ {
		seats := make([]Seat, n)
		for i := range seats {
			seats[i] = Seat{ID: SeatID(i + 1), Provider: "openai", Model: "m"}
		}
		r := MustRoster(seats)
		w := DefaultWeights(r)
		assert.Equal(t, WeightTotal, w.Sum(), "roster of %d", n)
		assert.NoError(t, w.Validate(r), "roster of %d", n)
	}
}

func TestWeightsValidate(t *testing.T) {
	roster := DefaultRoster()

	tests := []struct {
		name    string
		weights Weights
		wantErr []string
	}{
		{
			name:    "exact hundred",
			weights: Weights{1: 40, 2: 10, 3: 10, 4: 10, 5: 10, 6: 10, 7: 10},
		},
		{
			name:    "sums to 140",
			weights: Weights{1: 20, 2: 20, 3: 20, 4: 20, 5: 20, 6: 20, 7: 20},
			wantErr: []string{"weights must sum to 100, got 140"},
		},
		{
			name:    "missing seat",
			weights: Weights{1: 50, 2: 10, 3: 10, 4: 10, 5: 10, 6: 10},
			wantErr: []string{"seat 7: weight missing"},
		},
		{
			name:    "unknown seat",
			weights: Weights{1: 10, 2: 10, 3: 10, 4: 10, 5: 10, 6: 10, 7: 10, 9: 30},
			wantErr: []string{"seat 9: unknown seat"},
		},
		{
			name:    "negative weight",
			weights: Weights{1: 60, 2: -10, 3: 10, 4: 10, 5: 10, 6: 10, 7: 10},
			wantErr: []string{"seat 2: weight must not be negative"},
		},
		{
			name:    "zero weights allowed",
			weights: Weights{1: 100, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0, 7: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate(roster)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			for _, want := range tt.wantErr {
				assert.Contains(t, verr.Errors, want)
			}
		})
	}
}

func TestWeightsClone(t *testing.T) {
	w := Weights{1: 100}
	c := w.Clone()
	c[1] = 0

	assert.Equal(t, 100, w[1])
	assert.Nil(t, Weights(nil).Clone())
}
