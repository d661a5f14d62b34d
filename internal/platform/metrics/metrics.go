package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP surface
var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artix_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artix_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Contest lifecycle outcomes
var (
	VoteOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artix_vote_outcomes_total",
			Help: "Vote orchestration results: confirmed, confirmed_degraded, reconciled, pending, failed",
		},
		[]string{"outcome"},
	)

	MintOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artix_mint_outcomes_total",
			Help: "Mint saga results by terminal state",
		},
		[]string{"outcome"},
	)

	BidsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artix_auction_bids_accepted_total",
		Help: "Total number of accepted auction bids",
	})

	BidsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artix_auction_bids_rejected_total",
		Help: "Total number of rejected auction bids",
	})

	SpendOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artix_allowance_spend_outcomes_total",
			Help: "Delegated allowance spend results",
		},
		[]string{"outcome"},
	)
)

// Worker loop
var (
	WorkerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artix_worker_runs_total",
			Help: "Worker RunOnce invocations by job and result",
		},
		[]string{"job", "result"},
	)

	WorkerRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artix_worker_run_duration_seconds",
			Help:    "Worker RunOnce latency by job",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	EventsObserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artix_events_observed_total",
			Help: "Domain events received by the audit consumer",
		},
		[]string{"event_type"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
