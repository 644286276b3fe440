package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ghostpass/senate/internal/ports"
)

var (
	// ErrEmptyAPIKey indicates that a provider was built without credentials.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")

	// ErrEmptyResponse indicates a response with no text content.
	ErrEmptyResponse = fmt.Errorf("empty response from API: %w", ports.ErrInvalidResponse)

	// ErrNoResponseChoice indicates a chat completion without choices.
	ErrNoResponseChoice = fmt.Errorf("no response choices returned: %w", ports.ErrInvalidResponse)
)

// ErrorType classifies provider failures.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeAuthentication
	ErrorTypeRateLimit
	ErrorTypeBadRequest
	ErrorTypeNotFound
	ErrorTypeServerError
	ErrorTypeContentPolicy
	ErrorTypeNetwork
	ErrorTypeTimeout
	ErrorTypeCanceled
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeServerError:
		return "server_error"
	case ErrorTypeContentPolicy:
		return "content_policy"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ProviderError is a classified failure from one provider.
type ProviderError struct {
	Type       ErrorType
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Provider + " error"
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	msg += " [" + e.Type.String() + "]"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is maps the classification onto the ports sentinels so callers can test
// failures without knowing provider types.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ports.ErrTimeout:
		return e.Type == ErrorTypeTimeout
	case ports.ErrRateLimited:
		return e.Type == ErrorTypeRateLimit
	case ports.ErrServiceUnavailable:
		return e.Type == ErrorTypeServerError || e.Type == ErrorTypeNetwork
	case ports.ErrAuthenticationFailed:
		return e.Type == ErrorTypeAuthentication
	default:
		return false
	}
}

// Timeout reports a deadline failure.
func (e *ProviderError) Timeout() bool { return e.Type == ErrorTypeTimeout }

// IsRetryable reports transient failures.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// NewProviderError creates a ProviderError.
func NewProviderError(provider string, typ ErrorType, status int, message string, err error) *ProviderError {
	return &ProviderError{Type: typ, Provider: provider, StatusCode: status, Message: message, Err: err}
}

// ErrorClassifier turns raw SDK failures into ProviderErrors.
type ErrorClassifier struct {
	Provider string
}

// ClassifyHTTPError classifies by HTTP status code.
func (c ErrorClassifier) ClassifyHTTPError(status int, message string, err error) *ProviderError {
	var typ ErrorType
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		typ = ErrorTypeAuthentication
		message = c.Provider + " authentication failed"
	case status == http.StatusTooManyRequests:
		typ = ErrorTypeRateLimit
		message = c.Provider + " rate limit exceeded"
	case status == http.StatusNotFound:
		typ = ErrorTypeNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		typ = ErrorTypeTimeout
	case status >= 500:
		typ = ErrorTypeServerError
	case status >= 400:
		typ = ErrorTypeBadRequest
	}
	return NewProviderError(c.Provider, typ, status, message, err)
}

// ClassifyContextError classifies deadline and cancellation failures.
func (c ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(c.Provider, ErrorTypeTimeout, 0, "context deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(c.Provider, ErrorTypeCanceled, 0, "request canceled", err)
	default:
		return NewProviderError(c.Provider, ErrorTypeUnknown, 0, "", err)
	}
}

// classify handles the context and fallback cases shared by every provider.
// status is the HTTP status extracted from an SDK error, or 0.
func (c ErrorClassifier) classify(err error, status int, message string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return c.ClassifyContextError(err)
	}
	if status > 0 {
		if message == "" {
			message = http.StatusText(status)
		}
		return c.ClassifyHTTPError(status, message, err)
	}
	return NewProviderError(c.Provider, ErrorTypeNetwork, 0, "request failed", err)
}

// IsTimeout reports whether err is a deadline failure from any layer.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ports.ErrTimeout)
}
