// Package metrics provides Prometheus metrics for featline.
//
// # Overview
//
// The metrics package provides:
//   - Pre-defined counters for parsed lines, diagnostics and emitted features
//   - A batch latency histogram
//   - Throughput tracking for long-running ingestion
//
// # Basic Usage
//
//	metrics.LinesParsed.WithLabelValues("train.txt", metrics.StatusOK).Inc()
//
//	timer := metrics.BatchTimer("train.txt")
//	parseBatch(lines)
//	timer.ObserveDuration()
//
// All collectors register with the default registry on package init, so the
// CLI only has to mount promhttp.Handler to expose them.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Line outcome labels.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

var (
	// LinesParsed counts input lines by source and outcome.
	//
	// Example:
	//	metrics.LinesParsed.WithLabelValues("s3://bucket/train.gz", metrics.StatusFailed).Inc()
	LinesParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featline_lines_total",
			Help: "Total number of input lines by outcome",
		},
		[]string{"source", "status"},
	)

	// Diagnostics counts malformed-input diagnostics by kind (syntax, numeric, label).
	Diagnostics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featline_diagnostics_total",
			Help: "Total number of malformed-input diagnostics",
		},
		[]string{"kind"},
	)

	// FeaturesEmitted counts features appended to examples, derived ones included.
	FeaturesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featline_features_total",
			Help: "Total number of features emitted",
		},
		[]string{"source"},
	)

	// BatchLatency tracks the time to parse and emit one batch.
	BatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "featline_batch_duration_seconds",
			Help: "Time to parse and emit one batch",
			// 10us to 10s; wide examples with derived features sit at the top
			Buckets: prometheus.ExponentialBuckets(1e-5, 10, 7),
		},
		[]string{"source"},
	)

	// DictionaryEntries reports the number of words loaded per dictionary.
	DictionaryEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "featline_dictionary_entries",
			Help: "Number of entries loaded per feature dictionary",
		},
		[]string{"path"},
	)

	// Throughput tracks lines per second
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "featline_throughput_lines_per_second",
			Help: "Current throughput in lines per second",
		},
		[]string{"source"},
	)
)

// BatchTimer starts timing one batch of source. Call ObserveDuration when
// the batch is done.
func BatchTimer(source string) *prometheus.Timer {
	return prometheus.NewTimer(BatchLatency.WithLabelValues(source))
}

// ThroughputTracker tracks lines per second over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	count     atomic.Int64 // lines since last reset
	mu        sync.Mutex
	lastReset time.Time
	source    string
}

// NewThroughputTracker creates a tracker labelled with the input name.
func NewThroughputTracker(source string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		source:    source,
	}
}

// Increment adds n to the line count.
func (t *ThroughputTracker) Increment(n int64) {
	t.count.Add(n)
}

// GetAndReset calculates the current throughput, updates the gauge,
// resets the counter and returns the value.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count.Swap(0)) / elapsed
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.source).Set(throughput)

	return throughput
}
