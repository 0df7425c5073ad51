package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomePublished            = "published"
	outcomeSuperseded           = "superseded"
	outcomeCancelled            = "cancelled"
	outcomeWatchlistUnavailable = "watchlist_unavailable"
)

var (
	// runsTotal counts engine runs by outcome.
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_runs_total",
			Help: "Recommendation aggregation runs by outcome",
		},
		[]string{"outcome"},
	)

	// sourceFailures counts catalog calls that were absorbed as empty results.
	sourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_source_failures_total",
			Help: "Catalog calls that failed during aggregation, by source",
		},
		[]string{"source"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recs_run_duration_seconds",
			Help:    "Wall clock time of published aggregation runs",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	bucketSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recs_bucket_items",
			Help:    "Items per published bucket",
			Buckets: []float64{0, 1, 5, 10, 15, 20, 50},
		},
		[]string{"bucket"},
	)
)
