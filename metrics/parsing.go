package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parser_invocations_total",
			Help: "Scraper process invocations by marketplace and outcome.",
		},
		[]string{"marketplace", "outcome"},
	)
	invocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parser_invocation_duration_seconds",
			Help:    "Wall time of scraper processes.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"marketplace"},
	)
	reconciledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parser_reconciled_total",
			Help: "Catalog reconciliations by marketplace and action (insert, update, failed).",
		},
		[]string{"marketplace", "action"},
	)
	batchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parser_batch_runs_total",
			Help: "Batch runs by final status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(invocationsTotal, invocationDuration, reconciledTotal, batchRunsTotal)
}

func RecordInvocation(marketplace, outcome string, duration time.Duration) {
	invocationsTotal.WithLabelValues(marketplace, outcome).Inc()
	invocationDuration.WithLabelValues(marketplace).Observe(duration.Seconds())
}

func RecordReconciled(marketplace, action string) {
	reconciledTotal.WithLabelValues(marketplace, action).Inc()
}

func RecordBatchRun(status string) {
	batchRunsTotal.WithLabelValues(status).Inc()
}
