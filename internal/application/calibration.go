package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// DefaultHistoryLimit caps history listings when the caller gives no limit.
const DefaultHistoryLimit = 50

// CalibrationView is what a caller sees of the current calibration.
type CalibrationView struct {
	Weights    domain.Weights `json:"calibration"`
	IsEmployer bool           `json:"is_employer"`
	// Stored is false while the defaults are in effect.
	Stored bool `json:"stored"`
}

// CalibrationService reads and updates the seat weights.
type CalibrationService struct {
	roster   domain.Roster
	store    ports.CalibrationStore
	defaults domain.Weights
	metrics  ports.MetricsCollector
	logger   *slog.Logger
	now      func() time.Time

	// sf collapses concurrent reads of the current weights into one store
	// call.
	sf singleflight.Group
}

const (
	currentWeightsKey = "current"

	// sharedReadTimeout bounds a collapsed read once it no longer follows
	// any caller's deadline.
	sharedReadTimeout = 5 * time.Second
)

type storedWeights struct {
	weights domain.Weights
	found   bool
}

// NewCalibrationService returns a service over store. Nil defaults mean an
// even split across the roster.
func NewCalibrationService(roster domain.Roster, store ports.CalibrationStore, defaults domain.Weights,
	metrics ports.MetricsCollector, logger *slog.Logger) (*CalibrationService, error) {
	if store == nil || roster.Len() == 0 {
		return nil, domain.ErrInvalidConfiguration
	}
	if len(defaults) == 0 {
		defaults = domain.DefaultWeights(roster)
	}
	if err := defaults.Validate(roster); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CalibrationService{
		roster:   roster,
		store:    store,
		defaults: defaults.Clone(),
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Get returns the current weights, or the defaults when nothing is stored.
// Any caller may read them.
func (s *CalibrationService) Get(ctx context.Context, actor domain.Actor) (CalibrationView, error) {
	cur, err := s.current(ctx)
	if err != nil {
		return CalibrationView{}, err
	}
	view := CalibrationView{IsEmployer: actor.IsEmployer(), Stored: cur.found}
	if cur.found {
		view.Weights = cur.weights.Clone()
	} else {
		view.Weights = s.defaults.Clone()
	}
	return view, nil
}

// current reads the stored weights through the singleflight group. The
// shared read is detached from the caller that started it, so one caller
// going away does not fail the others; each caller still stops waiting when
// its own context ends.
func (s *CalibrationService) current(ctx context.Context) (storedWeights, error) {
	ch := s.sf.DoChan(currentWeightsKey, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
		defer cancel()
		w, found, err := s.store.CurrentWeights(readCtx)
		if err != nil {
			return nil, fmt.Errorf("read calibration: %w", err)
		}
		return storedWeights{weights: w, found: found}, nil
	})
	select {
	case <-ctx.Done():
		return storedWeights{}, fmt.Errorf("read calibration: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return storedWeights{}, res.Err
		}
		return res.Val.(storedWeights), nil
	}
}

// Update replaces the weights. The actor needs the employer or admin role
// and the weights must be valid for the roster; both are checked before
// the store is touched. The new weights and their audit entry are written
// in one transaction.
func (s *CalibrationService) Update(ctx context.Context, actor domain.Actor, w domain.Weights) error {
	if !actor.IsEmployer() {
		s.count("forbidden")
		return fmt.Errorf("update calibration: %w", domain.ErrForbidden)
	}
	if err := w.Validate(s.roster); err != nil {
		s.count("invalid")
		return err
	}

	w = w.Clone()
	entry := domain.CalibrationAudit{
		ID:        uuid.NewString(),
		ActorID:   actor.UserID,
		Weights:   w,
		Summary:   "weights set to " + w.String(),
		ChangedAt: s.now().UTC(),
	}
	err := s.store.RunInTx(ctx, func(tx ports.CalibrationWriter) error {
		if err := tx.SaveWeights(ctx, w, actor.UserID); err != nil {
			return fmt.Errorf("save weights: %w", err)
		}
		if err := tx.AppendAudit(ctx, entry); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
		return nil
	})
	s.sf.Forget(currentWeightsKey)
	if err != nil {
		s.count("error")
		s.logger.ErrorContext(ctx, "calibration update failed", "actor_id", actor.UserID, "error", err)
		return fmt.Errorf("update calibration: %w", err)
	}

	s.count("success")
	s.logger.InfoContext(ctx, "calibration updated",
		"actor_id", actor.UserID,
		"audit_id", entry.ID,
		"weights", entry.Summary,
	)
	return nil
}

// History lists accepted changes, newest first. Only employers and admins
// may read it. limit <= 0 uses DefaultHistoryLimit.
func (s *CalibrationService) History(ctx context.Context, actor domain.Actor, limit int) ([]domain.CalibrationAudit, error) {
	if !actor.IsEmployer() {
		return nil, fmt.Errorf("calibration history: %w", domain.ErrForbidden)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := s.store.History(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("calibration history: %w", err)
	}
	return entries, nil
}

func (s *CalibrationService) count(status string) {
	s.metrics.RecordCounter(ports.MetricCalibrationSave, 1, map[string]string{"status": status})
}

// Defaults returns the weights in effect before any calibration is saved.
func (s *CalibrationService) Defaults() domain.Weights { return s.defaults.Clone() }
