package seats

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/testutils"
)

var testSeat = domain.Seat{ID: 3, Name: "Pragmatist", Provider: "mock", Model: "mock-3", Enabled: true}

func newTestEvaluator(clients *testutils.MockSeatClients, timeout time.Duration) *Evaluator {
	return NewEvaluator(clients, EvaluatorConfig{Timeout: timeout, Logger: testutils.DiscardLogger()})
}

func evaluateWith(t *testing.T, response string) domain.Ballot {
	t.Helper()
	clients := testutils.NewMockSeatClients().Set(testSeat.ID, testutils.NewScriptedClient("mock-3", response))
	return newTestEvaluator(clients, time.Second).Evaluate(context.Background(), testSeat, "Please review this plan.")
}

func TestEvaluator_DisabledSeatIsOffline(t *testing.T) {
	clients := testutils.NewMockSeatClients()
	seat := testSeat
	seat.Enabled = false

	b := newTestEvaluator(clients, time.Second).Evaluate(context.Background(), seat, "text here")

	assert.Equal(t, domain.OfflineBallot(seat), b)
	assert.Zero(t, clients.Lookups(seat.ID), "disabled seats never resolve a client")
}

func TestEvaluator_UnresolvableSeatIsOffline(t *testing.T) {
	b := newTestEvaluator(testutils.NewMockSeatClients(), time.Second).Evaluate(context.Background(), testSeat, "text here")

	assert.Equal(t, domain.StatusOffline, b.Status)
	assert.Equal(t, domain.StanceAbstain, b.Stance)
	assert.Empty(t, b.Error)
}

func TestEvaluator_ParsesVerdict(t *testing.T) {
	resp := testutils.Verdict{
		Stance:        "Block",
		Score:         150,
		Confidence:    1.4,
		RiskFlags:     []string{"PII", " pii ", "Tone", ""},
		KeyPoints:     []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"},
		Counterpoints: []string{"a", "b", "c", "d", "e", "f"},
	}.JSON()

	b := evaluateWith(t, "```json\n"+resp+"\n```")

	require.Equal(t, domain.StatusOnline, b.Status, b.Error)
	assert.Equal(t, domain.StanceBlock, b.Stance)
	assert.Equal(t, 100.0, b.Score)
	assert.Equal(t, 1.0, b.Confidence)
	assert.Equal(t, []string{"pii", "tone"}, b.RiskFlags)
	assert.Len(t, b.KeyPoints, domain.MaxKeyPoints)
	assert.Len(t, b.Counterpoints, domain.MaxCounterpoints)
	assert.Equal(t, testSeat.ID, b.SeatID)
	assert.Equal(t, "Pragmatist", b.SeatName)
	assert.Equal(t, 10, b.TokensOut)
	assert.Positive(t, b.TokensIn)
}

func TestEvaluator_RejectsBadOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
		reason   string
	}{
		{name: "prose", response: "I think it is fine.", reason: "no JSON object"},
		{name: "unknown stance", response: `{"stance":"maybe","score":50,"confidence":0.5}`, reason: "unknown stance"},
		{name: "missing score", response: `{"stance":"approve","confidence":0.5}`, reason: "invalid verdict"},
		{name: "missing stance", response: `{"score":50,"confidence":0.5}`, reason: "invalid verdict"},
		{name: "wrong types", response: `{"stance":"approve","score":"high","confidence":0.5}`, reason: "decode verdict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := evaluateWith(t, tt.response)

			assert.Equal(t, domain.StatusError, b.Status)
			assert.Equal(t, domain.StanceAbstain, b.Stance)
			assert.Zero(t, b.Score)
			assert.Contains(t, b.Error, tt.reason)
			assert.NotNil(t, b.KeyPoints)
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "gateway timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestEvaluator_CallFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		delay  time.Duration
		status domain.BallotStatus
	}{
		{name: "transport error", err: errors.New("connection reset"), status: domain.StatusError},
		{name: "provider timeout", err: timeoutErr{}, status: domain.StatusTimeout},
		{name: "deadline", delay: time.Second, status: domain.StatusTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testutils.NewMockLLMClient("mock-3")
			client.SetError(tt.err)
			client.SetDelay(tt.delay)
			clients := testutils.NewMockSeatClients().Set(testSeat.ID, client)

			start := time.Now()
			b := newTestEvaluator(clients, 20*time.Millisecond).Evaluate(context.Background(), testSeat, "some text")

			assert.Equal(t, tt.status, b.Status)
			assert.Equal(t, domain.StanceAbstain, b.Stance)
			assert.NotEmpty(t, b.Error)
			assert.Less(t, time.Since(start), 500*time.Millisecond)
		})
	}
}

func TestEvaluator_SendsSeatInstructions(t *testing.T) {
	client := testutils.NewMockLLMClient("mock-3")
	clients := testutils.NewMockSeatClients().Set(testSeat.ID, client)

	b := newTestEvaluator(clients, time.Second).Evaluate(context.Background(), testSeat, "Launch plan v2")

	require.Equal(t, domain.StatusOnline, b.Status)
	opts := client.LastOptions()
	assert.Equal(t, SeatSystemPrompt, opts["system"])
	assert.Equal(t, "json", opts["response_format"])
	assert.Equal(t, DefaultSeatMaxTokens, opts["max_tokens"])
	assert.Contains(t, client.LastPrompt(), "Launch plan v2")
}

// Any model output yields a well-formed ballot for the seat.
func TestEvaluator_AlwaysReturnsBallot(t *testing.T) {
	f := func(resp string, score, conf float64) bool {
		inputs := []string{
			resp,
			`{"stance":"revise","score":` + jsonNumber(score) + `,"confidence":` + jsonNumber(conf) + `}`,
		}
		for _, in := range inputs {
			b := evaluateWith(t, in)
			if b.SeatID != testSeat.ID || b.Score < 0 || b.Score > 100 || b.Confidence < 0 || b.Confidence > 1 {
				return false
			}
			switch b.Status {
			case domain.StatusOnline, domain.StatusError:
			default:
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 200}))
}

func jsonNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
