// Package memory provides in-process implementations of the store ports.
// They back local runs and tests; state is lost on restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// CalibrationStore keeps the current weights and their audit trail.
// Transactions stage their writes and apply them only when the callback
// succeeds.
type CalibrationStore struct {
	mu      sync.RWMutex
	weights domain.Weights
	audit   []domain.CalibrationAudit
}

var _ ports.CalibrationStore = (*CalibrationStore)(nil)

// NewCalibrationStore returns an empty store.
func NewCalibrationStore() *CalibrationStore {
	return &CalibrationStore{}
}

// CurrentWeights returns a copy of the stored weights.
func (s *CalibrationStore) CurrentWeights(_ context.Context) (domain.Weights, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.weights == nil {
		return nil, false, nil
	}
	return s.weights.Clone(), true, nil
}

// RunInTx serializes transactions. Writes made through the writer become
// visible only after fn returns nil.
func (s *CalibrationStore) RunInTx(ctx context.Context, fn func(w ports.CalibrationWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &calibrationTx{}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.weights != nil {
		s.weights = tx.weights
	}
	s.audit = append(s.audit, tx.audit...)
	return nil
}

// History returns audit entries newest first.
func (s *CalibrationStore) History(_ context.Context, limit int) ([]domain.CalibrationAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.audit)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// calibrationTx stages writes. The actor is carried by the audit entry.
type calibrationTx struct {
	weights domain.Weights
	audit   []domain.CalibrationAudit
}

func (t *calibrationTx) SaveWeights(ctx context.Context, w domain.Weights, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.weights = w.Clone()
	return nil
}

func (t *calibrationTx) AppendAudit(ctx context.Context, entry domain.CalibrationAudit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry.Weights = entry.Weights.Clone()
	t.audit = append(t.audit, entry)
	return nil
}
