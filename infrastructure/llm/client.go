// Package llm puts the chat-completion providers that back senate seats
// (OpenAI, OpenRouter, Anthropic, Google) behind one client.
//
// Each provider implements CoreLLM. Cross-cutting behavior such as timeouts,
// retries, circuit breaking, rate limiting, metrics and tracing is layered on
// top as Middleware, so a seat's client is a provider wrapped in a chain:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-4-sonnet",
//	    Middleware: []llm.Middleware{
//	        llm.TracingMiddleware("anthropic"),
//	        llm.RetryMiddleware(2, 200*time.Millisecond, 2*time.Second),
//	        llm.CircuitBreakerMiddleware(5, 30*time.Second),
//	        llm.TimeoutMiddleware(20 * time.Second),
//	    },
//	})
//
// The Registry builds and caches such clients per provider/model pair.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CoreLLM is the minimal contract a provider implements. Middleware wraps
// CoreLLM values, so every layer of a chain satisfies it too.
type CoreLLM interface {
	// DoRequest sends one prompt and returns the response text with the
	// input and output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the model used for subsequent requests.
	GetModel() string

	// SetModel switches the model used for subsequent requests.
	SetModel(model string)
}

// TokenEstimator approximates token counts before a request is sent.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig holds everything needed to build one client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model is the provider-specific model identifier.
	Model string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Timeout bounds the underlying HTTP client. Zero leaves it unbounded;
	// use TimeoutMiddleware for per-request deadlines.
	Timeout time.Duration

	// TokenEstimator defaults to SimpleTokenEstimator.
	TokenEstimator TokenEstimator

	// Middleware is applied so that the first entry is the outermost layer.
	Middleware []Middleware
}

// Middleware wraps a CoreLLM to add behavior around each request.
type Middleware func(CoreLLM) CoreLLM

// Chain wraps core so that mw[0] sees each request first.
func Chain(core CoreLLM, mw ...Middleware) CoreLLM {
	for i := len(mw) - 1; i >= 0; i-- {
		core = mw[i](core)
	}
	return core
}

// Client adapts a middleware chain to ports.LLMClient.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

var (
	errMissingAPIKey = errors.New("API key is required")
	errMissingModel  = errors.New("model is required")
)

// NewClient builds a client for the registered provider type.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, errMissingAPIKey
	}
	if config.Model == "" {
		return nil, errMissingModel
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}
	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", providerType, err)
	}
	return NewClientFromCore(core, config.TokenEstimator, config.Middleware...), nil
}

// NewClientFromCore wraps an existing CoreLLM, typically a test double.
func NewClientFromCore(core CoreLLM, estimator TokenEstimator, mw ...Middleware) *Client {
	if estimator == nil {
		estimator = SimpleTokenEstimator{}
	}
	return &Client{core: Chain(core, mw...), estimator: estimator}
}

// Complete returns only the response text.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage returns the response text with token usage.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// EstimateTokens approximates the token count of text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the model of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// SimpleTokenEstimator assumes roughly four characters per token.
type SimpleTokenEstimator struct{}

// EstimateTokens rounds len(text)/4 up.
func (SimpleTokenEstimator) EstimateTokens(text string) int { return (len(text) + 3) / 4 }

// usageOrEstimate prefers the provider's reported count.
func usageOrEstimate(reported int64, text string) int {
	if reported > 0 {
		return int(reported)
	}
	return SimpleTokenEstimator{}.EstimateTokens(text)
}

// ProviderFactory creates a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory makes a provider type available to NewClient.
// It is meant to be called from init functions.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
