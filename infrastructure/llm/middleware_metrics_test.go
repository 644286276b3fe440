package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metricCall struct {
	name   string
	value  float64
	labels map[string]string
}

type recordingCollector struct {
	mu         sync.Mutex
	counters   []metricCall
	histograms []metricCall
}

func (c *recordingCollector) RecordLatency(string, time.Duration, map[string]string) {}
func (c *recordingCollector) RecordGauge(string, float64, map[string]string)         {}

func (c *recordingCollector) RecordCounter(name string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = append(c.counters, metricCall{name, v, labels})
}

func (c *recordingCollector) RecordHistogram(name string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.histograms = append(c.histograms, metricCall{name, v, labels})
}

func TestMetricsMiddleware_Success(t *testing.T) {
	collector := &recordingCollector{}
	wrapped := MetricsMiddleware(collector, "openai")(NewMockCoreLLM())

	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
	require.NoError(t, err)

	require.Len(t, collector.histograms, 1)
	assert.Equal(t, MetricLatency, collector.histograms[0].name)
	assert.Equal(t, map[string]string{"provider": "openai", "model": "test-model", "status": "success"}, collector.histograms[0].labels)

	require.Len(t, collector.counters, 3)
	assert.Equal(t, MetricRequests, collector.counters[0].name)
	assert.Equal(t, MetricTokens, collector.counters[1].name)
	assert.Equal(t, 10.0, collector.counters[1].value)
	assert.Equal(t, "input", collector.counters[1].labels["token_type"])
	assert.Equal(t, 20.0, collector.counters[2].value)
	assert.Equal(t, "output", collector.counters[2].labels["token_type"])
	assert.NotContains(t, collector.counters[0].labels, "token_type", "label maps must not be shared")
}

func TestMetricsMiddleware_FailureStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{name: "generic", err: errors.New("boom"), status: "error"},
		{name: "circuit open", err: ErrCircuitOpen, status: "circuit_open"},
		{name: "deadline", err: context.DeadlineExceeded, status: "timeout"},
		{name: "provider timeout", err: NewProviderError("google", ErrorTypeTimeout, 504, "", nil), status: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := &recordingCollector{}
			mock := NewMockCoreLLM()
			mock.Error = tt.err
			wrapped := MetricsMiddleware(collector, "google")(mock)

			_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)

			require.Error(t, err)
			require.Len(t, collector.counters, 1, "no token counters on failure")
			assert.Equal(t, tt.status, collector.counters[0].labels["status"])
		})
	}
}

func TestMetricsMiddleware_NilCollector(t *testing.T) {
	wrapped := MetricsMiddleware(nil, "openai")(NewMockCoreLLM())

	resp, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)

	require.NoError(t, err)
	assert.Equal(t, "test response", resp)
}
