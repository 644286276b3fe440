package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ghostpass/senate/internal/ports"
)

func TestErrorClassifier_ClassifyHTTPError(t *testing.T) {
	c := ErrorClassifier{Provider: "openai"}
	tests := []struct {
		status    int
		want      ErrorType
		retryable bool
	}{
		{401, ErrorTypeAuthentication, false},
		{403, ErrorTypeAuthentication, false},
		{429, ErrorTypeRateLimit, true},
		{404, ErrorTypeNotFound, false},
		{408, ErrorTypeTimeout, true},
		{504, ErrorTypeTimeout, true},
		{500, ErrorTypeServerError, true},
		{503, ErrorTypeServerError, true},
		{400, ErrorTypeBadRequest, false},
		{422, ErrorTypeBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := c.ClassifyHTTPError(tt.status, "msg", nil)
			assert.Equal(t, tt.want, err.Type)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.retryable, err.IsRetryable())
		})
	}
}

func TestErrorClassifier_Classify(t *testing.T) {
	c := ErrorClassifier{Provider: "anthropic"}

	var pe *ProviderError
	assert.True(t, errors.As(c.classify(context.DeadlineExceeded, 0, ""), &pe))
	assert.Equal(t, ErrorTypeTimeout, pe.Type)

	assert.True(t, errors.As(c.classify(fmt.Errorf("wrapped: %w", context.Canceled), 500, ""), &pe))
	assert.Equal(t, ErrorTypeCanceled, pe.Type, "context errors win over status")

	assert.True(t, errors.As(c.classify(errors.New("x"), 502, ""), &pe))
	assert.Equal(t, ErrorTypeServerError, pe.Type)
	assert.Equal(t, "Bad Gateway", pe.Message)

	assert.True(t, errors.As(c.classify(errors.New("dial tcp: refused"), 0, ""), &pe))
	assert.Equal(t, ErrorTypeNetwork, pe.Type)
}

func TestProviderError_MapsToPortSentinels(t *testing.T) {
	tests := []struct {
		typ    ErrorType
		target error
	}{
		{ErrorTypeTimeout, ports.ErrTimeout},
		{ErrorTypeRateLimit, ports.ErrRateLimited},
		{ErrorTypeServerError, ports.ErrServiceUnavailable},
		{ErrorTypeNetwork, ports.ErrServiceUnavailable},
		{ErrorTypeAuthentication, ports.ErrAuthenticationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			err := fmt.Errorf("seat call: %w", NewProviderError("p", tt.typ, 0, "", nil))
			assert.ErrorIs(t, err, tt.target)
		})
	}
	assert.NotErrorIs(t, NewProviderError("p", ErrorTypeBadRequest, 400, "", nil), ports.ErrServiceUnavailable)
}

func TestProviderError_Error(t *testing.T) {
	err := NewProviderError("openai", ErrorTypeRateLimit, 429, "openai rate limit exceeded", errors.New("raw"))

	assert.Equal(t, "openai error (HTTP 429) [rate_limit]: openai rate limit exceeded: raw", err.Error())
	assert.Equal(t, "raw", errors.Unwrap(err).Error())
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("x: %w", ports.ErrTimeout)))
	assert.True(t, IsTimeout(NewProviderError("g", ErrorTypeTimeout, 0, "", nil)))
	assert.False(t, IsTimeout(NewProviderError("g", ErrorTypeServerError, 500, "", nil)))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(nil))
}

func TestSentinelsWrapInvalidResponse(t *testing.T) {
	assert.ErrorIs(t, ErrEmptyResponse, ports.ErrInvalidResponse)
	assert.ErrorIs(t, ErrNoResponseChoice, ports.ErrInvalidResponse)
}
