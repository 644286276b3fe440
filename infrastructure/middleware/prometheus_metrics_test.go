package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostpass/senate/infrastructure/llm"
	"github.com/ghostpass/senate/internal/ports"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

func TestPrometheusMetrics_RoutesCounters(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordCounter(ports.MetricRuns, 1, map[string]string{"contested": "true", "degraded": "false"})
	pm.RecordCounter(ports.MetricRuns, 1, map[string]string{"contested": "true", "degraded": "false"})
	pm.RecordCounter(ports.MetricBallots, 1, map[string]string{"seat_id": "3", "status": "timeout"})
	pm.RecordCounter(ports.MetricResolutions, 1, map[string]string{"status": "ok", "grade": "green"})
	pm.RecordCounter(llm.MetricTokens, 120, map[string]string{"provider": "openai", "model": "gpt-4.1", "token_type": "input"})
	pm.RecordCounter("custom_total", 2, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.runs.WithLabelValues("true", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.ballots.WithLabelValues("3", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.resolutions.WithLabelValues("ok", "green")))
	assert.Equal(t, 120.0, testutil.ToFloat64(pm.llmTokens.WithLabelValues("openai", "gpt-4.1", "input")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.operations.WithLabelValues("custom_total", "unknown")))
}

func TestPrometheusMetrics_Histograms(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordHistogram(ports.MetricRunDuration, 3.2, nil)
	pm.RecordHistogram(llm.MetricLatency, 0.4, map[string]string{"provider": "google", "model": "gemini-2.5-flash", "status": "success"})
	pm.RecordLatency("calibration_get", 15*time.Millisecond, nil)

	assert.Equal(t, 1, testutil.CollectAndCount(pm.runDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.llmLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.opLatency))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names[ports.MetricRunDuration])
	assert.True(t, names[llm.MetricLatency])
}

func TestPrometheusMetrics_Gauge(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordGauge("seats_enabled", 6, nil)

	assert.Equal(t, 6.0, testutil.ToFloat64(pm.stateGauges.WithLabelValues("seats_enabled")))
}

func TestPrometheusMetrics_BreakerMetrics(t *testing.T) {
	pm, _ := newTestMetrics(t)
	bm := pm.BreakerMetrics("anthropic", "claude-sonnet-4-20250514")

	bm.RecordFailure()
	bm.RecordTrip()
	bm.RecordTrip()
	bm.RecordState(llm.StateOpen)

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.circuitEvent.WithLabelValues("anthropic", "claude-sonnet-4-20250514", "failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.circuitEvent.WithLabelValues("anthropic", "claude-sonnet-4-20250514", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.circuitState.WithLabelValues("anthropic", "claude-sonnet-4-20250514")))
}

func TestLLMMetricsMiddlewareFeedsPrometheus(t *testing.T) {
	pm, _ := newTestMetrics(t)
	core := llm.Chain(llm.NewMockCoreLLM(), llm.MetricsMiddleware(pm, "openai"))

	_, _, _, err := core.DoRequest(t.Context(), "prompt", nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.llmRequests.WithLabelValues("openai", "test-model", "success")))
	assert.Equal(t, 20.0, testutil.ToFloat64(pm.llmTokens.WithLabelValues("openai", "test-model", "output")))
}
