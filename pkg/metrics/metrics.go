// Package metrics provides performance tracking for Prism using Prometheus
// metrics. Collectors cover the streaming scan: rows accepted and skipped,
// values dropped by type guards, group cardinality, and scan latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsProcessed tracks rows that were accumulated into statistics.
	// Labels: source (dataset path or name)
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_rows_processed_total",
			Help: "Total number of rows accumulated",
		},
		[]string{"source"},
	)

	// RowsSkipped tracks rows dropped before accumulation.
	// Labels: source, reason (short_row, parse_error)
	RowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_rows_skipped_total",
			Help: "Total number of rows skipped before accumulation",
		},
		[]string{"source", "reason"},
	)

	// ValuesDropped tracks individual values rejected by a column's type
	// guard, such as a non-numeric value in a numeric column.
	// Labels: column_type (numeric, categorical, list)
	ValuesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_values_dropped_total",
			Help: "Total number of values rejected by column type guards",
		},
		[]string{"column_type"},
	)

	// GroupsActive tracks the number of distinct group keys seen so far.
	// Steady-state memory is proportional to this gauge times the column
	// count, so it is the first thing to check on a memory-heavy run.
	GroupsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prism_groups_active",
			Help: "Number of distinct group keys with live accumulators",
		},
	)

	// ScanDuration tracks end-to-end scan latency in seconds.
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prism_scan_duration_seconds",
			Help:    "End-to-end dataset scan duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop stops the timer and returns the elapsed duration since creation.
// The timer can be stopped multiple times, each returning the total
// elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
