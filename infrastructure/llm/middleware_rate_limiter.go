package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimitedLLM struct {
	next    CoreLLM
	limiter *rate.Limiter
}

// RateLimitMiddleware admits at most limit requests per second with the
// given burst. All CoreLLMs wrapped by the returned middleware share one
// limiter.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	return LimiterMiddleware(rate.NewLimiter(limit, burst))
}

// LimiterMiddleware waits on an existing limiter, e.g. one shared by every
// model of a provider.
func LimiterMiddleware(l *rate.Limiter) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &rateLimitedLLM{next: next, limiter: l}
	}
}

func (r *rateLimitedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoRequest(ctx, prompt, opts)
}

func (r *rateLimitedLLM) GetModel() string  { return r.next.GetModel() }
func (r *rateLimitedLLM) SetModel(m string) { r.next.SetModel(m) }
