package testutils

import (
	"maps"
	"sync"
	"time"

	"github.com/ghostpass/senate/internal/ports"
)

// Observation is one value recorded by MetricsRecorder.
type Observation struct {
	Metric string
	Value  float64
	Labels map[string]string
}

// MetricsRecorder is a ports.MetricsCollector that keeps every observation
// in memory.
type MetricsRecorder struct {
	mu         sync.Mutex
	counters   []Observation
	histograms []Observation
}

var _ ports.MetricsCollector = (*MetricsRecorder)(nil)

// NewMetricsRecorder returns an empty recorder.
func NewMetricsRecorder() *MetricsRecorder { return &MetricsRecorder{} }

func (m *MetricsRecorder) RecordLatency(operation string, d time.Duration, labels map[string]string) {
	m.RecordHistogram(operation, d.Seconds(), labels)
}

func (m *MetricsRecorder) RecordCounter(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, Observation{Metric: metric, Value: value, Labels: maps.Clone(labels)})
}

func (m *MetricsRecorder) RecordGauge(string, float64, map[string]string) {}

func (m *MetricsRecorder) RecordHistogram(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, Observation{Metric: metric, Value: value, Labels: maps.Clone(labels)})
}

// Counter sums a counter over every observation whose labels include all
// of match. A nil match sums everything recorded under metric.
func (m *MetricsRecorder) Counter(metric string, match map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, o := range m.counters {
		if o.Metric == metric && labelsMatch(o.Labels, match) {
			total += o.Value
		}
	}
	return total
}

// Histograms returns the values observed under metric.
func (m *MetricsRecorder) Histograms(metric string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []float64
	for _, o := range m.histograms {
		if o.Metric == metric {
			out = append(out, o.Value)
		}
	}
	return out
}

func labelsMatch(labels, match map[string]string) bool {
	for k, v := range match {
		if labels[k] != v {
			return false
		}
	}
	return true
}
