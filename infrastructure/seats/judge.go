package seats

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// Judge defaults.
const (
	DefaultJudgeTimeout   = 40 * time.Second
	DefaultJudgeMaxTokens = 1200

	// FallbackAnswer is the final answer of a degraded verdict.
	FallbackAnswer = "The senate could not synthesize a verdict. Treat this submission as contested and review the individual ballots."

	// NoQuorumAnswer is the final answer when no seat responded.
	NoQuorumAnswer = "No seat returned a usable ballot. Treat this submission as contested and retry later."
)

// JudgeConfig configures a Judge.
type JudgeConfig struct {
	Rule       domain.ContestRule
	Timeout    time.Duration
	MaxTokens  int
	Similarity float64
}

// Judge implements ports.Synthesizer with one model call per synthesis.
type Judge struct {
	client  ports.LLMClient
	cfg     JudgeConfig
	traceID func() string
}

var _ ports.Synthesizer = (*Judge)(nil)

// NewJudge returns a judge. A nil client always yields degraded verdicts.
// A zero Rule is replaced by domain.DefaultContestRule.
func NewJudge(client ports.LLMClient, cfg JudgeConfig) *Judge {
	if cfg.Rule == (domain.ContestRule{}) {
		cfg.Rule = domain.DefaultContestRule()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultJudgeTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultJudgeMaxTokens
	}
	if cfg.Similarity <= 0 {
		cfg.Similarity = DefaultSimilarity
	}
	return &Judge{client: client, cfg: cfg, traceID: NewTraceID}
}

// NewTraceID returns "sen_" followed by a UUIDv7, which is time-ordered with
// a random tail.
func NewTraceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "sen_" + id.String()
}

type judgeResponse struct {
	FinalAnswer             string `json:"final_answer"`
	Reasoning               string `json:"reasoning"`
	DisagreementExplanation string `json:"disagreement_explanation"`
}

// Synthesize computes aggregates over online ballots, decides contested
// before calling the model, and degrades instead of failing.
func (j *Judge) Synthesize(ctx context.Context, text string, ballots []domain.Ballot, weights domain.Weights) domain.JudgeOutput {
	d := domain.MeasureDispersion(ballots, j.cfg.Rule)
	tally := domain.Tally(ballots, weights)
	out := domain.JudgeOutput{
		ParticipationSummary: domain.Summarize(ballots, weights),
		Contested:            j.cfg.Rule.Contested(d.BlocksCount, d.ScoreVariance),
		TraceID:              j.traceID(),
		ScoreVariance:        d.ScoreVariance,
		BlocksCount:          d.BlocksCount,
		WeightedScore:        tally.Score,
		StanceShare:          tally.StanceShare,
		LeadingStance:        tally.Leading,
		SharedPoints:         SharedPoints(ballots, j.cfg.Similarity),
	}

	if d.Online == 0 {
		return degrade(out, NoQuorumAnswer)
	}
	if j.client == nil {
		return degrade(out, FallbackAnswer)
	}
	out.JudgeModel = j.client.GetModel()

	prompt, err := judgePrompt(text, ballots, weights, out)
	if err != nil {
		return degrade(out, FallbackAnswer)
	}

	ctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()
	resp, err := j.client.Complete(ctx, prompt, map[string]any{
		"system":          JudgeSystemPrompt,
		"max_tokens":      j.cfg.MaxTokens,
		"temperature":     0.0,
		"response_format": "json",
	})
	resp = strings.TrimSpace(resp)
	if err != nil || resp == "" {
		return degrade(out, FallbackAnswer)
	}

	var jr judgeResponse
	if raw := extractJSON(resp); raw != "" && json.Unmarshal([]byte(raw), &jr) == nil && strings.TrimSpace(jr.FinalAnswer) != "" {
		out.FinalAnswer = strings.TrimSpace(jr.FinalAnswer)
		out.Reasoning = strings.TrimSpace(jr.Reasoning)
		out.DisagreementExplanation = strings.TrimSpace(jr.DisagreementExplanation)
		return out
	}
	out.FinalAnswer = resp
	return out
}

func degrade(out domain.JudgeOutput, answer string) domain.JudgeOutput {
	out.FinalAnswer = answer
	out.Contested = true
	out.Degraded = true
	return out
}
