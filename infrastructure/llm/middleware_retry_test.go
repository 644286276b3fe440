package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostpass/senate/internal/ports"
)

func TestRetryMiddleware(t *testing.T) {
	authErr := NewProviderError("openai", ErrorTypeAuthentication, 401, "bad key", nil)
	serverErr := NewProviderError("openai", ErrorTypeServerError, 503, "overloaded", nil)

	tests := []struct {
		name      string
		failUntil int
		err       error
		retries   int
		wantCalls int
		wantErr   bool
		errIs     error
	}{
		{name: "success first try", retries: 2, wantCalls: 1},
		{name: "recovers after transient failures", failUntil: 2, retries: 3, wantCalls: 3},
		{name: "retryable provider error recovers", failUntil: 1, err: serverErr, retries: 2, wantCalls: 2},
		{name: "exhausts retries", failUntil: 10, retries: 2, wantCalls: 3, wantErr: true, errIs: errSimulated},
		{name: "non-retryable stops", failUntil: 10, err: authErr, retries: 3, wantCalls: 1, wantErr: true, errIs: ports.ErrAuthenticationFailed},
		{name: "open circuit stops", failUntil: 10, err: ErrCircuitOpen, retries: 3, wantCalls: 1, wantErr: true, errIs: ErrCircuitOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockCoreLLM()
			mock.FailUntilAttempt = tt.failUntil
			if tt.err != nil {
				mock.Error = tt.err
			}
			wrapped := RetryMiddleware(tt.retries, time.Millisecond, 5*time.Millisecond)(mock)

			resp, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)

			assert.Equal(t, tt.wantCalls, mock.CallCount())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test response", resp)
		})
	}
}

func TestRetryMiddleware_ReportsAttempts(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Error = errors.New("flaky")
	wrapped := RetryMiddleware(2, time.Millisecond, time.Millisecond)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryMiddleware_StopsWhenContextEnds(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Error = errors.New("flaky")
	wrapped := RetryMiddleware(5, time.Second, time.Second)(mock)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, _, _, err := wrapped.DoRequest(ctx, "prompt", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry aborted")
	assert.Equal(t, 1, mock.CallCount())
	assert.Less(t, time.Since(start), 500*time.Millisecond, "backoff must not outlive the context")
}

func TestRetryBackoff_StaysWithinJitterBounds(t *testing.T) {
	r := &retryLLM{baseDelay: 10 * time.Millisecond, maxDelay: 40 * time.Millisecond}
	for attempt := range 8 {
		want := min(10*time.Millisecond<<attempt, 40*time.Millisecond)
		for range 20 {
			got := r.backoff(attempt)
			assert.GreaterOrEqual(t, got, want-want/4, "attempt %d", attempt)
			assert.LessOrEqual(t, got, want+want/4, "attempt %d", attempt)
		}
	}
}
