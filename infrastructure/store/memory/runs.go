package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// RunStore keeps completed runs in arrival order.
type RunStore struct {
	mu   sync.RWMutex
	runs []domain.Run
}

var _ ports.RunRecorder = (*RunStore)(nil)

// NewRunStore returns an empty store.
func NewRunStore() *RunStore {
	return &RunStore{}
}

// RecordRun appends the run. Run ids must be unique.
func (s *RunStore) RecordRun(ctx context.Context, run domain.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.ContainsFunc(s.runs, func(r domain.Run) bool { return r.ID == run.ID }) {
		return fmt.Errorf("run %s already recorded", run.ID)
	}
	run.Ballots = slices.Clone(run.Ballots)
	run.WeightsUsed = run.WeightsUsed.Clone()
	s.runs = append(s.runs, run)
	return nil
}

// Runs returns a copy of every recorded run.
func (s *RunStore) Runs() []domain.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.runs)
}
