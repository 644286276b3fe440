// Package seats turns model clients into senate participants: the
// Evaluator produces one ballot per seat and the Judge synthesizes a verdict
// from a full ballot set. Neither returns errors; failures are folded into
// ballot status or a degraded verdict.
package seats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// Evaluator defaults.
const (
	DefaultSeatTimeout     = 25 * time.Second
	DefaultSeatMaxTokens   = 800
	DefaultSeatTemperature = 0.2

	maxReasonLen = 200
)

// EvaluatorConfig configures an Evaluator.
type EvaluatorConfig struct {
	// Timeout bounds one seat, retries included.
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger
}

// Evaluator implements ports.SeatEvaluator.
type Evaluator struct {
	clients  ports.SeatClients
	cfg      EvaluatorConfig
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.SeatEvaluator = (*Evaluator)(nil)

// NewEvaluator fills zero config fields with defaults.
func NewEvaluator(clients ports.SeatClients, cfg EvaluatorConfig) *Evaluator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSeatTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultSeatMaxTokens
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evaluator{
		clients:  clients,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		now:      time.Now,
	}
}

// verdict is the JSON shape seats are instructed to return.
type verdict struct {
	Stance           string   `json:"stance" validate:"required"`
	Score            *float64 `json:"score" validate:"required"`
	Confidence       *float64 `json:"confidence" validate:"required"`
	RiskFlags        []string `json:"risk_flags"`
	KeyPoints        []string `json:"key_points"`
	Counterpoints    []string `json:"counterpoints"`
	RecommendedEdits []string `json:"recommended_edits"`
}

// Evaluate calls the seat's model once and returns its ballot.
func (e *Evaluator) Evaluate(ctx context.Context, seat domain.Seat, text string) domain.Ballot {
	if !seat.Enabled {
		return domain.OfflineBallot(seat)
	}
	client, err := e.clients.ClientFor(seat)
	if err != nil {
		e.logger.DebugContext(ctx, "seat has no client", "seat_id", seat.ID, "error", err)
		return domain.OfflineBallot(seat)
	}

	prompt, err := seatPrompt(text)
	if err != nil {
		return domain.FailedBallot(seat, domain.StatusError, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := e.now()
	resp, in, out, err := client.CompleteWithUsage(ctx, prompt, map[string]any{
		"system":          SeatSystemPrompt,
		"max_tokens":      e.cfg.MaxTokens,
		"temperature":     e.cfg.Temperature,
		"response_format": "json",
	})
	latency := e.now().Sub(start).Milliseconds()

	if err != nil {
		status := domain.StatusError
		reason := shorten(err.Error())
		if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = domain.StatusTimeout
			reason = fmt.Sprintf("no response within %s", e.cfg.Timeout)
		}
		e.logger.WarnContext(ctx, "seat call failed", "seat_id", seat.ID, "status", status, "error", err)
		b := domain.FailedBallot(seat, status, reason)
		b.LatencyMS = latency
		return b
	}

	b, err := e.parse(seat, resp)
	if err != nil {
		e.logger.WarnContext(ctx, "seat output rejected", "seat_id", seat.ID, "error", err)
		b = domain.FailedBallot(seat, domain.StatusError, shorten(err.Error()))
	}
	b.LatencyMS, b.TokensIn, b.TokensOut = latency, in, out
	return b
}

// parse extracts, decodes and validates a verdict.
func (e *Evaluator) parse(seat domain.Seat, resp string) (domain.Ballot, error) {
	raw := extractJSON(resp)
	if raw == "" {
		return domain.Ballot{}, errors.New("no JSON object in response")
	}
	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return domain.Ballot{}, fmt.Errorf("decode verdict: %w", err)
	}
	if err := e.validate.Struct(v); err != nil {
		return domain.Ballot{}, fmt.Errorf("invalid verdict: %w", err)
	}
	stance, ok := domain.ParseStance(v.Stance)
	if !ok {
		return domain.Ballot{}, fmt.Errorf("unknown stance %q", v.Stance)
	}

	return domain.Ballot{
		SeatID:           seat.ID,
		SeatName:         seat.Name,
		Provider:         seat.Provider,
		Model:            seat.Model,
		Status:           domain.StatusOnline,
		Stance:           stance,
		Score:            domain.ClampScore(*v.Score),
		Confidence:       domain.ClampConfidence(*v.Confidence),
		RiskFlags:        normalizeFlags(v.RiskFlags),
		KeyPoints:        cleanList(v.KeyPoints, domain.MaxKeyPoints),
		Counterpoints:    cleanList(v.Counterpoints, domain.MaxCounterpoints),
		RecommendedEdits: cleanList(v.RecommendedEdits, 0),
	}, nil
}

// normalizeFlags lower-cases, trims and de-duplicates, keeping first order.
func normalizeFlags(flags []string) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// cleanList drops blank entries and keeps at most limit; limit 0 keeps all.
func cleanList(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ports.ErrTimeout)
}

func shorten(s string) string {
	if r := []rune(s); len(r) > maxReasonLen {
		return string(r[:maxReasonLen])
	}
	return s
}
