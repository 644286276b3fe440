package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostpass/senate/internal/ports"
)

func openAIServer(t *testing.T, status int, body string, inspect func(map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if inspect != nil {
			var req map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			inspect(req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const openAIOK = `{
	"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"stance\":\"approve\"}"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10}
}`

func newTestOpenAI(t *testing.T, srv *httptest.Server) CoreLLM {
	t.Helper()
	p, err := newOpenAICompatible("openai", ClientConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return p
}

func TestOpenAIProvider_DoRequest(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, openAIOK, func(req map[string]any) {
		assert.Equal(t, "gpt-4o-mini", req["model"])
		assert.EqualValues(t, 300, req["max_tokens"])
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "you are a seat", msgs[0].(map[string]any)["content"])
		assert.Equal(t, "evaluate this", msgs[1].(map[string]any)["content"])
		assert.Equal(t, "json_object", req["response_format"].(map[string]any)["type"])
	})
	p := newTestOpenAI(t, srv)

	resp, in, out, err := p.DoRequest(context.Background(), "evaluate this", map[string]any{
		"max_tokens":      300,
		"system":          "you are a seat",
		"response_format": "json",
	})

	require.NoError(t, err)
	assert.Equal(t, `{"stance":"approve"}`, resp)
	assert.Equal(t, 7, in)
	assert.Equal(t, 3, out)
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"error": {"message": "slow down", "type": "rate_limit_error", "code": "rate_limit_exceeded"}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ports.ErrRateLimited)
				var pe *ProviderError
				require.ErrorAs(t, err, &pe)
				assert.True(t, pe.IsRetryable())
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error": {"message": "bad key", "type": "invalid_request_error"}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ports.ErrAuthenticationFailed)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error": {"message": "oops", "type": "server_error"}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ports.ErrServiceUnavailable)
			},
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"id": "x", "object": "chat.completion", "choices": []}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoResponseChoice)
				assert.ErrorIs(t, err, ports.ErrInvalidResponse)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestOpenAI(t, openAIServer(t, tt.status, tt.body, nil))
			_, _, _, err := p.DoRequest(context.Background(), "prompt", nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestOpenRouterFactory_DefaultsBaseURL(t *testing.T) {
	core, err := providerFactories["openrouter"](ClientConfig{APIKey: "k", Model: "meta-llama/llama-3.3-70b-instruct"})
	require.NoError(t, err)
	assert.Equal(t, "meta-llama/llama-3.3-70b-instruct", core.GetModel())
}

func TestOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := newOpenAICompatible("openai", ClientConfig{Model: "m"})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)
}
