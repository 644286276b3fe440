package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		config   ClientConfig
		wantErr  string
	}{
		{name: "missing key", provider: "openai", config: ClientConfig{Model: "gpt-4.1"}, wantErr: "API key is required"},
		{name: "missing model", provider: "openai", config: ClientConfig{APIKey: "k"}, wantErr: "model is required"},
		{name: "unknown provider", provider: "nope", config: ClientConfig{APIKey: "k", Model: "m"}, wantErr: "unknown provider: nope"},
		{name: "bad base url", provider: "openai", config: ClientConfig{APIKey: "k", Model: "m", BaseURL: "ftp://x"}, wantErr: "invalid BaseURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.provider, tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewClient_RegisteredProviders(t *testing.T) {
	for _, provider := range []string{"openai", "openrouter", "anthropic", "google"} {
		t.Run(provider, func(t *testing.T) {
			client, err := NewClient(provider, ClientConfig{APIKey: "key", Model: "some-model"})
			require.NoError(t, err)
			assert.Equal(t, "some-model", client.GetModel())
		})
	}
}

func TestChain_FirstMiddlewareIsOutermost(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &orderLLM{next: next, name: name, order: &order}
		}
	}

	core := Chain(NewMockCoreLLM(), tag("outer"), tag("middle"), tag("inner"))
	_, _, _, err := core.DoRequest(context.Background(), "p", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "middle", "inner"}, order)
}

type orderLLM struct {
	next  CoreLLM
	name  string
	order *[]string
}

func (o *orderLLM) DoRequest(ctx context.Context, p string, opts map[string]any) (string, int, int, error) {
	*o.order = append(*o.order, o.name)
	return o.next.DoRequest(ctx, p, opts)
}
func (o *orderLLM) GetModel() string  { return o.next.GetModel() }
func (o *orderLLM) SetModel(m string) { o.next.SetModel(m) }

func TestClient_CompleteAndUsage(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Response = `{"ok":true}`
	client := NewClientFromCore(mock, nil)

	text, err := client.Complete(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)

	_, in, out, err := client.CompleteWithUsage(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, 10, in)
	assert.Equal(t, 20, out)
	assert.Equal(t, "test-model", client.GetModel())
}

func TestSimpleTokenEstimator(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, tt := range tests {
		got, err := NewClientFromCore(NewMockCoreLLM(), nil).EstimateTokens(tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "text %q", tt.text)
	}
}

func TestUsageOrEstimate(t *testing.T) {
	assert.Equal(t, 42, usageOrEstimate(42, "ignored"))
	assert.Equal(t, 2, usageOrEstimate(0, "12345678"))
}
