package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconcileRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_rows_total",
			Help: "Rows touched by reconciliation syncs, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	FinalizeFlipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "composition_finalize_flips_total",
			Help: "Grade composition finalized-flag transitions",
		},
	)

	GradeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grade_value",
			Help:    "Distribution of committed grade values",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
		[]string{"operation"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
