package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ghostpass/senate/internal/ports"
)

// Metric names emitted by MetricsMiddleware.
const (
	MetricLatency  = "llm_latency_seconds"
	MetricRequests = "llm_requests_total"
	MetricTokens   = "llm_tokens_total"
)

type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
	provider  string
}

// MetricsMiddleware records latency, request outcome and token usage per
// request, labeled with provider, model and status.
func MetricsMiddleware(collector ports.MetricsCollector, provider string) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector, provider: provider}
	}
}

func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	resp, in, out, err := m.next.DoRequest(ctx, prompt, opts)
	if m.collector == nil {
		return resp, in, out, err
	}

	labels := map[string]string{
		"provider": m.provider,
		"model":    m.next.GetModel(),
		"status":   requestStatus(err),
	}
	m.collector.RecordHistogram(MetricLatency, time.Since(start).Seconds(), labels)
	m.collector.RecordCounter(MetricRequests, 1, labels)
	if err == nil {
		m.collector.RecordCounter(MetricTokens, float64(in), withLabel(labels, "token_type", "input"))
		m.collector.RecordCounter(MetricTokens, float64(out), withLabel(labels, "token_type", "output"))
	}
	return resp, in, out, err
}

func requestStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case IsTimeout(err):
		return "timeout"
	default:
		return "error"
	}
}

func withLabel(labels map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for lk, lv := range labels {
		out[lk] = lv
	}
	out[k] = v
	return out
}

func (m *metricsLLM) GetModel() string      { return m.next.GetModel() }
func (m *metricsLLM) SetModel(model string) { m.next.SetModel(model) }
