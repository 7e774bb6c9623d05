package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartplate_requests_created_total",
		Help: "Total number of food requests successfully created.",
	})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartplate_lifecycle_transitions_total",
		Help: "Total number of accepted lifecycle transitions by event.",
	},
		[]string{"event"},
	)

	TransitionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartplate_lifecycle_transition_errors_total",
		Help: "Total number of rejected lifecycle events by event.",
	},
		[]string{"event"},
	)

	RequestsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartplate_requests_expired_total",
		Help: "Total number of requests moved to expired.",
	})

	EligibleMatches = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smartplate_eligible_matches",
		Help:    "Number of eligible candidates per ranking.",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	ContributionsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartplate_contributions_ingested_total",
		Help: "Total number of contribution events applied to the leaderboard by role.",
	},
		[]string{"role"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartplate_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	ActiveRequestCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartplate_active_request_cache_items",
		Help: "Current number of items in the active request cache.",
	})
)
