package ports

import (
	"context"
	"time"
)

// LLMClient is a completion endpoint for one model. The option keys
// understood by every provider are "system", "temperature" and
// "max_tokens"; unknown keys are ignored.
type LLMClient interface {
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// CompleteWithUsage also returns the provider's input and output token
	// counts. Providers that do not report usage return estimates.
	CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error)

	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier, without the provider prefix.
	GetModel() string
}

// MetricsCollector receives the operational metrics of seat calls, runs,
// calibration writes and resolutions. Metric names are the Metric*
// constants plus the llm middleware's request metrics.
type MetricsCollector interface {
	RecordLatency(operation string, duration time.Duration, labels map[string]string)
	RecordCounter(metric string, value float64, labels map[string]string)
	RecordGauge(metric string, value float64, labels map[string]string)
	RecordHistogram(metric string, value float64, labels map[string]string)
}
