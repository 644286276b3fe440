package llm

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// ProviderConfig describes one provider the registry can build clients for.
type ProviderConfig struct {
	// Type selects the registered ProviderFactory.
	Type string

	// EnvVar names the environment variable holding the API key.
	EnvVar string

	// DefaultModel is used for specs that name only the provider.
	DefaultModel string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// Aliases maps roster model names onto provider model identifiers.
	Aliases map[string]string

	// RequestsPerSecond and Burst configure a limiter shared by every model
	// of the provider. Zero disables rate limiting.
	RequestsPerSecond float64
	Burst             int

	// Middleware is applied inside the registry defaults.
	Middleware []Middleware
}

// MiddlewareFactory builds fresh middleware for one provider/model client.
// Stateful layers such as circuit breakers belong here so each client gets
// its own.
type MiddlewareFactory func(provider, model string) []Middleware

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Providers map[string]ProviderConfig

	// DefaultTimeout bounds the provider HTTP clients.
	DefaultTimeout time.Duration

	// ClientMiddleware, when set, builds the outer middleware of every
	// client. Its layers wrap the provider limiter and Middleware.
	ClientMiddleware MiddlewareFactory

	// LookupEnv resolves API keys. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// DefaultProviders covers every provider the default roster uses.
func DefaultProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"openai": {
			Type:              "openai",
			EnvVar:            "OPENAI_API_KEY",
			DefaultModel:      "gpt-4.1",
			RequestsPerSecond: 10,
			Burst:             5,
		},
		"anthropic": {
			Type:         "anthropic",
			EnvVar:       "ANTHROPIC_API_KEY",
			DefaultModel: "claude-4-sonnet",
			Aliases: map[string]string{
				"claude-4-sonnet":  "claude-sonnet-4-20250514",
				"claude-4-opus":    "claude-opus-4-20250514",
				"claude-3.5-haiku": "claude-3-5-haiku-latest",
			},
			RequestsPerSecond: 5,
			Burst:             3,
		},
		"google": {
			Type:              "google",
			EnvVar:            "GOOGLE_API_KEY",
			DefaultModel:      "gemini-2.5-flash",
			RequestsPerSecond: 10,
			Burst:             5,
		},
		"openrouter": {
			Type:              "openrouter",
			EnvVar:            "OPENROUTER_API_KEY",
			DefaultModel:      "meta-llama/llama-3.3-70b-instruct",
			BaseURL:           OpenRouterBaseURL,
			RequestsPerSecond: 2,
			Burst:             2,
		},
	}
}

// Registry builds, caches and hands out clients keyed by provider/model.
// It implements ports.SeatClients.
type Registry struct {
	providers map[string]ProviderConfig
	timeout   time.Duration
	clientMW  MiddlewareFactory
	lookupEnv func(string) (string, bool)

	mu       sync.RWMutex
	clients  map[string]ports.LLMClient
	limiters map[string]*rate.Limiter
}

// NewRegistry validates the provider table and returns an empty registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if len(config.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	for name, p := range config.Providers {
		if _, ok := providerFactories[p.Type]; !ok {
			return nil, fmt.Errorf("provider %q: unknown type %q", name, p.Type)
		}
	}
	lookup := config.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Registry{
		providers: config.Providers,
		timeout:   config.DefaultTimeout,
		clientMW:  config.ClientMiddleware,
		lookupEnv: lookup,
		clients:   make(map[string]ports.LLMClient),
		limiters:  make(map[string]*rate.Limiter),
	}, nil
}

// ClientFor returns the client serving seat. A provider without an API key
// yields an error wrapping ports.ErrNoClient.
func (r *Registry) ClientFor(seat domain.Seat) (ports.LLMClient, error) {
	return r.GetClient(seat.Key())
}

// GetClient resolves "provider" or "provider/model", building the client on
// first use. Model names may themselves contain slashes.
func (r *Registry) GetClient(spec string) (ports.LLMClient, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider specification cannot be empty")
	}
	provider, model, _ := strings.Cut(spec, "/")
	cfg, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q: %w", provider, ports.ErrNoClient)
	}
	if model == "" {
		model = cfg.DefaultModel
	}
	key := provider + "/" + model

	r.mu.RLock()
	client, ok := r.clients[key]
	r.mu.RUnlock()
	if ok {
		return client, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[key]; ok {
		return client, nil
	}
	client, err := r.build(provider, model, cfg)
	if err != nil {
		return nil, err
	}
	r.clients[key] = client
	return client, nil
}

// Register installs a prebuilt client for spec, replacing any cached one.
func (r *Registry) Register(spec string, client ports.LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[spec] = client
}

// Providers lists the configured provider names whose API key is present.
func (r *Registry) Providers() []string {
	var out []string
	for name, cfg := range r.providers {
		if key, ok := r.lookupEnv(cfg.EnvVar); ok && key != "" {
			out = append(out, name)
		}
	}
	return out
}

// build must be called with r.mu held.
func (r *Registry) build(provider, model string, cfg ProviderConfig) (ports.LLMClient, error) {
	apiKey, ok := r.lookupEnv(cfg.EnvVar)
	if !ok || apiKey == "" {
		return nil, fmt.Errorf("%s: %s not set: %w", provider, cfg.EnvVar, ports.ErrNoClient)
	}
	if alias, ok := cfg.Aliases[model]; ok {
		model = alias
	}

	var mw []Middleware
	if r.clientMW != nil {
		mw = append(mw, r.clientMW(provider, model)...)
	}
	if cfg.RequestsPerSecond > 0 {
		mw = append(mw, LimiterMiddleware(r.limiterFor(provider, cfg)))
	}
	mw = append(mw, cfg.Middleware...)

	client, err := NewClient(cfg.Type, ClientConfig{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    cfg.BaseURL,
		Timeout:    r.timeout,
		Middleware: mw,
	})
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", provider, model, err)
	}
	return client, nil
}

func (r *Registry) limiterFor(provider string, cfg ProviderConfig) *rate.Limiter {
	if l, ok := r.limiters[provider]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, cfg.Burst))
	r.limiters[provider] = l
	return l
}

var _ ports.SeatClients = (*Registry)(nil)
