package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	supa "github.com/supabase-community/supabase-go"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// RunStore inserts completed runs into the senate_runs table.
type RunStore struct {
	client *supa.Client
}

var _ ports.RunRecorder = (*RunStore)(nil)

// NewRunStore returns a recorder over client.
func NewRunStore(client *supa.Client) *RunStore {
	return &RunStore{client: client}
}

// runRow is the row shape of senate_runs.
type runRow struct {
	ID           string          `json:"id"`
	TraceID      string          `json:"trace_id"`
	UserID       string          `json:"user_id"`
	InputText    string          `json:"input_text"`
	Ballots      json.RawMessage `json:"ballots"`
	JudgeOutput  json.RawMessage `json:"judge_output"`
	WeightsUsed  json.RawMessage `json:"weights_used"`
	Contested    bool            `json:"contested"`
	ProcessingMS int64           `json:"processing_ms"`
	CreatedAt    string          `json:"created_at"`
}

func toRunRow(run domain.Run) (runRow, error) {
	ballots, err := json.Marshal(run.Ballots)
	if err != nil {
		return runRow{}, fmt.Errorf("marshal ballots: %w", err)
	}
	judge, err := json.Marshal(run.Judge)
	if err != nil {
		return runRow{}, fmt.Errorf("marshal judge output: %w", err)
	}
	weights, err := json.Marshal(run.WeightsUsed)
	if err != nil {
		return runRow{}, fmt.Errorf("marshal weights: %w", err)
	}
	return runRow{
		ID:           run.ID,
		TraceID:      run.TraceID,
		UserID:       run.UserID,
		InputText:    run.InputText,
		Ballots:      ballots,
		JudgeOutput:  judge,
		WeightsUsed:  weights,
		Contested:    run.Judge.Contested,
		ProcessingMS: run.ProcessingMS,
		CreatedAt:    run.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// RecordRun inserts the run. The PostgREST client takes no context, so a
// context that is already done short-circuits the call.
func (s *RunStore) RecordRun(ctx context.Context, run domain.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row, err := toRunRow(run)
	if err != nil {
		return err
	}
	var inserted []runRow
	_, err = s.client.From(RunsTable).
		Insert(row, false, "", "", "").
		ExecuteTo(&inserted)
	return wrap("record_run", err)
}
