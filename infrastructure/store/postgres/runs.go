package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// RunStore records completed runs with ballots and verdict as JSONB.
type RunStore struct {
	db *sql.DB
}

var _ ports.RunRecorder = (*RunStore)(nil)

// NewRunStore returns a store over db.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// RecordRun inserts the run.
func (s *RunStore) RecordRun(ctx context.Context, run domain.Run) error {
	ballots, err := json.Marshal(run.Ballots)
	if err != nil {
		return fmt.Errorf("marshal ballots: %w", err)
	}
	judge, err := json.Marshal(run.Judge)
	if err != nil {
		return fmt.Errorf("marshal judge output: %w", err)
	}
	weights, err := json.Marshal(run.WeightsUsed)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO senate_runs
			(id, trace_id, user_id, input_text, ballots, judge_output, weights_used, contested, processing_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.TraceID, run.UserID, run.InputText, ballots, judge, weights,
		run.Judge.Contested, run.ProcessingMS, run.CreatedAt)
	return wrap("record_run", err)
}

// RunByTraceID loads a recorded run.
func (s *RunStore) RunByTraceID(ctx context.Context, traceID string) (domain.Run, error) {
	var (
		run                    domain.Run
		ballots, judge, weight []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, trace_id, user_id, input_text, ballots, judge_output, weights_used, processing_ms, created_at
		FROM senate_runs WHERE trace_id = $1`, traceID).
		Scan(&run.ID, &run.TraceID, &run.UserID, &run.InputText, &ballots, &judge, &weight, &run.ProcessingMS, &run.CreatedAt)
	if err != nil {
		return domain.Run{}, wrap("run_by_trace_id", err)
	}
	if err := json.Unmarshal(ballots, &run.Ballots); err != nil {
		return domain.Run{}, fmt.Errorf("decode ballots: %w", err)
	}
	if err := json.Unmarshal(judge, &run.Judge); err != nil {
		return domain.Run{}, fmt.Errorf("decode judge output: %w", err)
	}
	if err := json.Unmarshal(weight, &run.WeightsUsed); err != nil {
		return domain.Run{}, fmt.Errorf("decode weights: %w", err)
	}
	return run, nil
}
