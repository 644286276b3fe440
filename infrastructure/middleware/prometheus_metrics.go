// Package middleware provides cross-cutting concerns for the senate service.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ghostpass/senate/infrastructure/llm"
	"github.com/ghostpass/senate/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector. Known metric names
// are routed to dedicated vectors; anything else lands in the generic
// operation vectors.
type PrometheusMetrics struct {
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	ballots      *prometheus.CounterVec
	calibration  *prometheus.CounterVec
	resolutions  *prometheus.CounterVec
	resolveDur   prometheus.Histogram
	llmRequests  *prometheus.CounterVec
	llmLatency   *prometheus.HistogramVec
	llmTokens    *prometheus.CounterVec
	circuitState *prometheus.GaugeVec
	circuitEvent *prometheus.CounterVec

	operations  *prometheus.CounterVec
	opLatency   *prometheus.HistogramVec
	stateGauges *prometheus.GaugeVec
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers every vector with reg. Passing
// prometheus.DefaultRegisterer exposes them on promhttp.Handler().
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	providerLabels := []string{"provider", "model", "status"}
	return &PrometheusMetrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: ports.MetricRuns,
			Help: "Senate runs completed, by verdict shape.",
		}, []string{"contested", "degraded"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    ports.MetricRunDuration,
			Help:    "End-to-end duration of a senate run.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		}),
		ballots: f.NewCounterVec(prometheus.CounterOpts{
			Name: ports.MetricBallots,
			Help: "Ballots produced, by seat and status.",
		}, []string{"seat_id", "status"}),
		calibration: f.NewCounterVec(prometheus.CounterOpts{
			Name: ports.MetricCalibrationSave,
			Help: "Calibration update attempts, by outcome.",
		}, []string{"status"}),
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: ports.MetricResolutions,
			Help: "Ghost reference resolutions, by outcome and grade.",
		}, []string{"status", "grade"}),
		resolveDur: f.NewHistogram(prometheus.HistogramOpts{
			Name:    ports.MetricResolveDuration,
			Help:    "Duration of a ghost reference resolution.",
			Buckets: prometheus.DefBuckets,
		}),
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: llm.MetricRequests,
			Help: "Model provider requests, by outcome.",
		}, providerLabels),
		llmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    llm.MetricLatency,
			Help:    "Model provider request latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, providerLabels),
		llmTokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: llm.MetricTokens,
			Help: "Tokens consumed, by direction.",
		}, []string{"provider", "model", "token_type"}),
		circuitState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "llm_circuit_state",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"provider", "model"}),
		circuitEvent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_circuit_events_total",
			Help: "Circuit breaker outcomes.",
		}, []string{"provider", "model", "event"}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "senate_operations_total",
			Help: "Operations without a dedicated metric.",
		}, []string{"operation", "status"}),
		opLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "senate_operation_duration_seconds",
			Help:    "Latency of operations without a dedicated metric.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		stateGauges: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "senate_state",
			Help: "Point-in-time values.",
		}, []string{"metric"}),
	}
}

func label(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return "unknown"
}

// RecordLatency observes duration on the generic operation histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, d time.Duration, _ map[string]string) {
	pm.opLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCounter adds value to the counter named by metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricRuns:
		pm.runs.WithLabelValues(label(labels, "contested"), label(labels, "degraded")).Add(value)
	case ports.MetricBallots:
		pm.ballots.WithLabelValues(label(labels, "seat_id"), label(labels, "status")).Add(value)
	case ports.MetricCalibrationSave:
		pm.calibration.WithLabelValues(label(labels, "status")).Add(value)
	case ports.MetricResolutions:
		pm.resolutions.WithLabelValues(label(labels, "status"), label(labels, "grade")).Add(value)
	case llm.MetricRequests:
		pm.llmRequests.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Add(value)
	case llm.MetricTokens:
		pm.llmTokens.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "token_type")).Add(value)
	default:
		pm.operations.WithLabelValues(metric, label(labels, "status")).Add(value)
	}
}

// RecordGauge sets the generic state gauge for metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	pm.stateGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram observes value on the histogram named by metric.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricRunDuration:
		pm.runDuration.Observe(value)
	case ports.MetricResolveDuration:
		pm.resolveDur.Observe(value)
	case llm.MetricLatency:
		pm.llmLatency.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Observe(value)
	default:
		pm.opLatency.WithLabelValues(metric).Observe(value)
	}
}

// BreakerMetrics returns a circuit breaker observer for one client.
func (pm *PrometheusMetrics) BreakerMetrics(provider, model string) llm.CircuitBreakerMetrics {
	return &breakerMetrics{pm: pm, provider: provider, model: model}
}

type breakerMetrics struct {
	pm              *PrometheusMetrics
	provider, model string
}

func (b *breakerMetrics) RecordState(s llm.CircuitBreakerState) {
	b.pm.circuitState.WithLabelValues(b.provider, b.model).Set(float64(s))
}

func (b *breakerMetrics) RecordTrip() { b.event("rejected") }

func (b *breakerMetrics) RecordSuccess() { b.event("success") }

func (b *breakerMetrics) RecordFailure() { b.event("failure") }

func (b *breakerMetrics) event(e string) {
	b.pm.circuitEvent.WithLabelValues(b.provider, b.model, e).Inc()
}
