package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Components receive it by injection instead of touching the global
// Prometheus collectors directly.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Recommendation metrics
	IncrementRecommendations(source string)
	IncrementEmptyResults(itemType string)

	// Upstream catalog metrics
	IncrementCatalogRequests(endpoint, outcome string)
	RecordCatalogLatency(endpoint string, duration time.Duration)

	// Favorite metrics
	IncrementFavoriteMutations(action, status string)

	// Session metrics
	IncrementSessions(event string)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus collectors.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementRecommendations(source string) {
	RecommendationCount.WithLabelValues(source).Inc()
}

func (r *PrometheusRegistry) IncrementEmptyResults(itemType string) {
	EmptyResultCount.WithLabelValues(itemType).Inc()
}

func (r *PrometheusRegistry) IncrementCatalogRequests(endpoint, outcome string) {
	CatalogRequestCount.WithLabelValues(endpoint, outcome).Inc()
}

func (r *PrometheusRegistry) RecordCatalogLatency(endpoint string, duration time.Duration) {
	CatalogRequestLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementFavoriteMutations(action, status string) {
	FavoriteMutationCount.WithLabelValues(action, status).Inc()
}

func (r *PrometheusRegistry) IncrementSessions(event string) {
	SessionCount.WithLabelValues(event).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing.
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry.
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                     {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration)  {}
func (r *NoOpRegistry) IncrementRecommendations(source string)                                {}
func (r *NoOpRegistry) IncrementEmptyResults(itemType string)                                 {}
func (r *NoOpRegistry) IncrementCatalogRequests(endpoint, outcome string)                     {}
func (r *NoOpRegistry) RecordCatalogLatency(endpoint string, duration time.Duration)          {}
func (r *NoOpRegistry) IncrementFavoriteMutations(action, status string)                      {}
func (r *NoOpRegistry) IncrementSessions(event string)                                        {}
