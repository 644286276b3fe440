package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingMiddleware_PassesThrough(t *testing.T) {
	mock := NewMockCoreLLM()
	wrapped := TracingMiddleware("anthropic")(mock)

	resp, in, out, err := wrapped.DoRequest(context.Background(), "prompt", map[string]any{"max_tokens": 5})

	require.NoError(t, err)
	assert.Equal(t, "test response", resp)
	assert.Equal(t, 10, in)
	assert.Equal(t, 20, out)
	_, opts := mock.LastRequest()
	assert.Equal(t, 5, opts["max_tokens"])
}

func TestTracingMiddleware_ReturnsErrors(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Error = errors.New("upstream")
	wrapped := TracingMiddleware("anthropic")(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)

	assert.EqualError(t, err, "upstream")
}

func TestTracingMiddleware_DelegatesModel(t *testing.T) {
	mock := NewMockCoreLLM()
	wrapped := TracingMiddleware("openai")(mock)

	wrapped.SetModel("gpt-4.1")

	assert.Equal(t, "gpt-4.1", mock.GetModel())
	assert.Equal(t, "gpt-4.1", wrapped.GetModel())
}
