package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// CalibrationStore persists weights in a single-row table and appends every
// accepted change to an audit table in the same transaction.
type CalibrationStore struct {
	db        *sql.DB
	txTimeout time.Duration
}

var _ ports.CalibrationStore = (*CalibrationStore)(nil)

// NewCalibrationStore returns a store over db.
func NewCalibrationStore(db *sql.DB) *CalibrationStore {
	return &CalibrationStore{db: db, txTimeout: defaultTxTimeout}
}

// CurrentWeights reads the single calibration row.
func (s *CalibrationStore) CurrentWeights(ctx context.Context) (domain.Weights, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT weights FROM senate_calibration WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("current_weights", err)
	}
	var w domain.Weights
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, false, wrap("current_weights", fmt.Errorf("decode weights: %w", err))
	}
	return w, true, nil
}

// RunInTx begins a transaction, hands fn a writer bound to it and commits
// when fn succeeds. A context without a deadline gets the store's default
// transaction timeout.
func (s *CalibrationStore) RunInTx(ctx context.Context, fn func(w ports.CalibrationWriter) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&calibrationWriter{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrap("commit", err)
	}
	return nil
}

// History lists audit entries newest first.
func (s *CalibrationStore) History(ctx context.Context, limit int) ([]domain.CalibrationAudit, error) {
	query := `SELECT id, actor_id, weights, summary, changed_at
		FROM senate_calibration_audit ORDER BY changed_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("history", err)
	}
	defer rows.Close()

	var out []domain.CalibrationAudit
	for rows.Next() {
		var (
			entry domain.CalibrationAudit
			raw   []byte
		)
		if err := rows.Scan(&entry.ID, &entry.ActorID, &raw, &entry.Summary, &entry.ChangedAt); err != nil {
			return nil, wrap("history", err)
		}
		if err := json.Unmarshal(raw, &entry.Weights); err != nil {
			return nil, wrap("history", fmt.Errorf("decode weights: %w", err))
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("history", err)
	}
	return out, nil
}

type calibrationWriter struct {
	tx execer
}

func (w *calibrationWriter) SaveWeights(ctx context.Context, weights domain.Weights, actorID string) error {
	raw, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO senate_calibration (id, weights, actor_id, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET weights = EXCLUDED.weights, actor_id = EXCLUDED.actor_id, updated_at = EXCLUDED.updated_at`,
		raw, actorID)
	return wrap("save_weights", err)
}

func (w *calibrationWriter) AppendAudit(ctx context.Context, entry domain.CalibrationAudit) error {
	raw, err := json.Marshal(entry.Weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO senate_calibration_audit (id, actor_id, weights, summary, changed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.ActorID, raw, entry.Summary, entry.ChangedAt)
	return wrap("append_audit", err)
}
