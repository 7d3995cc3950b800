package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrec_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamrec_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// recommendation requests served, labelled by seeding source
	RecommendationCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrec_recommendations_total",
			Help: "Total recommendation requests served",
		},
		[]string{"source"},
	)

	// per-type result lists that came back empty
	EmptyResultCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrec_empty_results_total",
			Help: "Total empty per-type recommendation lists",
		},
		[]string{"item_type"},
	)

	// upstream catalog calls, labelled by endpoint and outcome
	CatalogRequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrec_catalog_requests_total",
			Help: "Total upstream catalog requests",
		},
		[]string{"endpoint", "outcome"},
	)

	// latency of upstream catalog calls per endpoint
	CatalogRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamrec_catalog_request_duration_seconds",
			Help:    "Duration of upstream catalog requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// favorite set/unset operations, labelled by action and result
	FavoriteMutationCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrec_favorite_mutations_total",
			Help: "Total favorite add/remove operations",
		},
		[]string{"action", "status"},
	)

	// active session creations and destructions
	SessionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrec_sessions_total",
			Help: "Total session lifecycle events",
		},
		[]string{"event"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		RecommendationCount,
		EmptyResultCount,
		CatalogRequestCount,
		CatalogRequestLatency,
		FavoriteMutationCount,
		SessionCount,
	)
}
