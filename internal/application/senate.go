// Package application holds the senate's use cases: convening a run,
// managing seat calibration and resolving ghost references. Services here
// depend only on domain types and ports.
package application

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// Submission bounds in characters, applied to the trimmed input.
const (
	DefaultMinInputChars = 5
	DefaultMaxInputChars = 20000

	DefaultRecordTimeout = 5 * time.Second
)

const tracerName = "github.com/ghostpass/senate/internal/application"

// RunRequest asks the senate to evaluate one submission.
type RunRequest struct {
	UserID    string
	InputText string
	// Weights overrides the stored calibration for this run only.
	Weights domain.Weights
}

// RunResult is the response to a completed run.
type RunResult struct {
	RunID        string             `json:"run_id"`
	TraceID      string             `json:"trace_id"`
	Ballots      []domain.Ballot    `json:"ballots"`
	Judge        domain.JudgeOutput `json:"judge_output"`
	Contested    bool               `json:"contested"`
	WeightsUsed  domain.Weights     `json:"weights_used"`
	ProcessingMS int64              `json:"processing_time_ms"`
}

// SenateDeps wires a SenateService. Roster, Evaluator and Judge are
// required; everything else has a usable zero value.
type SenateDeps struct {
	Roster    domain.Roster
	Evaluator ports.SeatEvaluator
	Judge     ports.Synthesizer

	// Calibration supplies stored weights. Nil means defaults only.
	Calibration ports.CalibrationStore
	// Recorder persists completed runs. Nil disables persistence.
	Recorder ports.RunRecorder

	// DefaultWeights apply when no calibration is stored. Nil means an
	// even split across the roster.
	DefaultWeights domain.Weights

	MinInputChars int
	MaxInputChars int
	RecordTimeout time.Duration

	Metrics ports.MetricsCollector
	Logger  *slog.Logger
}

// SenateService convenes the seats on a submission and synthesizes their
// ballots into one verdict.
type SenateService struct {
	roster        domain.Roster
	evaluator     ports.SeatEvaluator
	judge         ports.Synthesizer
	calibration   ports.CalibrationStore
	recorder      ports.RunRecorder
	defaults      domain.Weights
	minChars      int
	maxChars      int
	recordTimeout time.Duration
	metrics       ports.MetricsCollector
	logger        *slog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewSenateService validates the default weights against the roster and
// fills zero limits with the package defaults.
func NewSenateService(deps SenateDeps) (*SenateService, error) {
	if deps.Roster.Len() == 0 || deps.Evaluator == nil || deps.Judge == nil {
		return nil, domain.ErrInvalidConfiguration
	}
	defaults := deps.DefaultWeights.Clone()
	if len(defaults) == 0 {
		defaults = domain.DefaultWeights(deps.Roster)
	}
	if err := defaults.Validate(deps.Roster); err != nil {
		return nil, err
	}

	s := &SenateService{
		roster:        deps.Roster,
		evaluator:     deps.Evaluator,
		judge:         deps.Judge,
		calibration:   deps.Calibration,
		recorder:      deps.Recorder,
		defaults:      defaults,
		minChars:      deps.MinInputChars,
		maxChars:      deps.MaxInputChars,
		recordTimeout: deps.RecordTimeout,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		tracer:        otel.Tracer(tracerName),
		now:           time.Now,
	}
	if s.minChars <= 0 {
		s.minChars = DefaultMinInputChars
	}
	if s.maxChars <= 0 {
		s.maxChars = DefaultMaxInputChars
	}
	if s.recordTimeout <= 0 {
		s.recordTimeout = DefaultRecordTimeout
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s, nil
}

// Roster returns the seats this service convenes.
func (s *SenateService) Roster() domain.Roster { return s.roster }

// Convene runs every roster seat on the submission concurrently, waits for
// all of them, and asks the judge for a verdict. Only input and weight
// validation fail a run; seat, judge and persistence failures are folded
// into the result.
func (s *SenateService) Convene(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := s.now()
	text := strings.TrimSpace(req.InputText)
	if err := s.validateInput(text); err != nil {
		return nil, err
	}
	weights, err := s.weightsFor(ctx, req.Weights)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "senate.convene", trace.WithAttributes(
		attribute.Int("senate.seats", s.roster.Len()),
		attribute.Int("senate.input_chars", utf8.RuneCountInString(text)),
	))
	defer span.End()

	ballots := s.collect(ctx, text)
	out := s.judge.Synthesize(ctx, text, ballots, weights)
	elapsed := s.now().Sub(start)

	span.SetAttributes(
		attribute.String("senate.trace_id", out.TraceID),
		attribute.Bool("senate.contested", out.Contested),
		attribute.Bool("senate.degraded", out.Degraded),
	)

	run := domain.Run{
		ID:           uuid.NewString(),
		TraceID:      out.TraceID,
		UserID:       req.UserID,
		InputText:    text,
		Ballots:      ballots,
		Judge:        out,
		WeightsUsed:  weights,
		ProcessingMS: elapsed.Milliseconds(),
		CreatedAt:    start.UTC(),
	}
	s.record(ctx, run)
	s.observe(run, elapsed)

	s.logger.InfoContext(ctx, "senate run completed",
		"trace_id", out.TraceID,
		"user_id", req.UserID,
		"contested", out.Contested,
		"degraded", out.Degraded,
		"processing_ms", run.ProcessingMS,
	)

	return &RunResult{
		RunID:        run.ID,
		TraceID:      out.TraceID,
		Ballots:      ballots,
		Judge:        out,
		Contested:    out.Contested,
		WeightsUsed:  weights,
		ProcessingMS: run.ProcessingMS,
	}, nil
}

func (s *SenateService) validateInput(text string) error {
	verr := domain.NewValidationError("run")
	switch n := utf8.RuneCountInString(text); {
	case n < s.minChars:
		verr.AddErrorf("input_text: must be at least %d characters, got %d", s.minChars, n)
	case n > s.maxChars:
		verr.AddErrorf("input_text: must be at most %d characters, got %d", s.maxChars, n)
	}
	return verr.ErrOrNil()
}

// weightsFor picks the override, then the stored calibration, then the
// defaults. Stored weights that no longer match the roster are ignored.
func (s *SenateService) weightsFor(ctx context.Context, override domain.Weights) (domain.Weights, error) {
	if override != nil {
		if err := override.Validate(s.roster); err != nil {
			return nil, err
		}
		return override.Clone(), nil
	}
	if s.calibration == nil {
		return s.defaults.Clone(), nil
	}

	stored, found, err := s.calibration.CurrentWeights(ctx)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "calibration read failed, using default weights", "error", err)
	case !found:
	case stored.Validate(s.roster) != nil:
		s.logger.WarnContext(ctx, "stored calibration does not match roster, using default weights",
			"weights", stored.String())
	default:
		return stored.Clone(), nil
	}
	return s.defaults.Clone(), nil
}

// collect fans out one goroutine per seat, disabled seats included, and
// joins all of them. Each goroutine owns one slot of the result slice.
func (s *SenateService) collect(ctx context.Context, text string) []domain.Ballot {
	seats := s.roster.Seats()
	ballots := make([]domain.Ballot, len(seats))

	var g errgroup.Group
	for i, seat := range seats {
		g.Go(func() error {
			ballots[i] = s.evaluator.Evaluate(ctx, seat, text)
			return nil
		})
	}
	_ = g.Wait() // tasks never fail

	return ballots
}

// record persists the run on a context detached from the caller's so a
// client disconnect right after synthesis does not drop it.
func (s *SenateService) record(ctx context.Context, run domain.Run) {
	if s.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.recordTimeout)
	defer cancel()
	if err := s.recorder.RecordRun(rctx, run); err != nil {
		s.logger.ErrorContext(ctx, "failed to record senate run",
			"trace_id", run.TraceID,
			"run_id", run.ID,
			"error", err,
		)
	}
}

func (s *SenateService) observe(run domain.Run, elapsed time.Duration) {
	for _, b := range run.Ballots {
		s.metrics.RecordCounter(ports.MetricBallots, 1, map[string]string{
			"seat_id": strconv.Itoa(int(b.SeatID)),
			"status":  string(b.Status),
		})
	}
	s.metrics.RecordCounter(ports.MetricRuns, 1, map[string]string{
		"contested": strconv.FormatBool(run.Judge.Contested),
		"degraded":  strconv.FormatBool(run.Judge.Degraded),
	})
	s.metrics.RecordHistogram(ports.MetricRunDuration, elapsed.Seconds(), nil)
}

type nopMetrics struct{}

func (nopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (nopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (nopMetrics) RecordGauge(string, float64, map[string]string)         {}
func (nopMetrics) RecordHistogram(string, float64, map[string]string)     {}
