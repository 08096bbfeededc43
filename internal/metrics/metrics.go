// Package metrics exposes Prometheus collectors for the indexer service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	snapshotsTotal       *prometheus.CounterVec
	stageFailuresTotal   *prometheus.CounterVec
	emitFailuresTotal    prometheus.Counter
	activeWorkers        prometheus.Gauge
	stageDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		snapshotsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_snapshots_total",
				Help: "Total number of snapshots produced, labeled by status.",
			},
			[]string{"status"},
		)

		stageFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_stage_failures_total",
				Help: "Total per-stage failures folded into error snapshots.",
			},
			[]string{"stage"},
		)

		emitFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "indexer_emit_failures_total",
				Help: "Total emission calls that returned an error or panicked.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexer_active_workers",
				Help: "Number of submissions currently in flight.",
			},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexer_stage_duration_seconds",
				Help:    "Histogram of stage latencies, labeled by stage.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		)
	})
}

// SnapshotProduced records one finished snapshot by status.
func SnapshotProduced(status string) {
	if snapshotsTotal == nil {
		return
	}
	snapshotsTotal.WithLabelValues(status).Inc()
}

// StageFailed records a failure of the named stage.
func StageFailed(stage string) {
	if stageFailuresTotal == nil {
		return
	}
	stageFailuresTotal.WithLabelValues(stage).Inc()
}

// EmitFailed records a sink failure contained by the scheduler.
func EmitFailed() {
	if emitFailuresTotal == nil {
		return
	}
	emitFailuresTotal.Inc()
}

// WorkerStarted increments the in-flight gauge.
func WorkerStarted() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Inc()
}

// WorkerFinished decrements the in-flight gauge.
func WorkerFinished() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Dec()
}

// ObserveStage records the duration of one stage invocation.
func ObserveStage(stage string, d time.Duration) {
	if stageDurationSeconds == nil {
		return
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}
