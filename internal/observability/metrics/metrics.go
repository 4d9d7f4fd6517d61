package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "recon_"

	resultSuccess = "success"
	resultError   = "error"

	rowApplied    = "applied"
	rowStale      = "skipped_stale"
	rowUnchanged  = "skipped_unchanged"
	rowUnresolved = "skipped_unresolved"
)

var (
	registerOnce sync.Once

	batchTotal   *prometheus.CounterVec
	batchLatency *prometheus.HistogramVec
	batchRows    prometheus.Histogram

	rowOutcomes *prometheus.CounterVec

	snapshotWrites   prometheus.Counter
	snapshotFailures prometheus.Counter

	publishTotal *prometheus.CounterVec
)

// Init registers reconciliation metrics and DB-backed gauges.
// It is safe to call more than once; only the first call registers.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		batchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "batches_total",
				Help: "Total reconciliation batches by result",
			},
			[]string{"result"},
		)
		batchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "batch_latency_seconds",
				Help:    "Reconciliation batch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		batchRows = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "batch_rows",
				Help:    "Observations per reconciliation batch",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		)

		rowOutcomes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_total",
				Help: "Total observations by outcome for committed batches",
			},
			[]string{"outcome"},
		)

		snapshotWrites = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshot_writes_total",
				Help: "Total manager daily snapshots written",
			},
		)
		snapshotFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshot_failures_total",
				Help: "Total manager daily snapshot upserts that failed",
			},
		)

		publishTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "event_publish_total",
				Help: "Total reconciliation completed events published by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			batchTotal,
			batchLatency,
			batchRows,
			rowOutcomes,
			snapshotWrites,
			snapshotFailures,
			publishTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveBatch records batch duration, size and result.
func ObserveBatch(result string, rows int, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if batchTotal != nil {
		batchTotal.WithLabelValues(result).Inc()
	}
	if batchLatency != nil {
		batchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if batchRows != nil {
		batchRows.Observe(float64(rows))
	}
}

// AddRowOutcomes increments row outcome counters of a committed batch.
func AddRowOutcomes(applied, stale, unchanged, unresolved int) {
	if rowOutcomes == nil {
		return
	}
	add := func(outcome string, count int) {
		if count > 0 {
			rowOutcomes.WithLabelValues(outcome).Add(float64(count))
		}
	}
	add(rowApplied, applied)
	add(rowStale, stale)
	add(rowUnchanged, unchanged)
	add(rowUnresolved, unresolved)
}

// AddSnapshots increments snapshot write and failure counters.
func AddSnapshots(written, failed int) {
	if snapshotWrites != nil && written > 0 {
		snapshotWrites.Add(float64(written))
	}
	if snapshotFailures != nil && failed > 0 {
		snapshotFailures.Add(float64(failed))
	}
}

// IncPublish increments the event publish counter.
func IncPublish(result string) {
	if result == "" {
		result = resultSuccess
	}
	if publishTotal != nil {
		publishTotal.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
