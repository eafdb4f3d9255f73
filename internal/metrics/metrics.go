// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_api_http_requests_total",
			Help: "Total HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movie_api_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movie_api_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	// Database

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movie_api_db_query_duration_seconds",
			Help:    "PostgreSQL query latency in seconds by statement kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_api_db_query_errors_total",
			Help: "Failed PostgreSQL queries by statement kind",
		},
		[]string{"operation"},
	)

	DBSlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movie_api_db_slow_queries_total",
			Help: "Queries slower than the configured threshold",
		},
	)

	DBPoolConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movie_api_db_pool_connections",
			Help: "Connection pool connections by state",
		},
		[]string{"state"}, // acquired, idle, total
	)

	DBPoolPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movie_api_db_pool_ping_failures_total",
			Help: "Failed periodic pool health checks",
		},
	)

	// Recommendations

	RecommendationStrategy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_api_recommendation_strategy_total",
			Help: "Personalized recommendation requests by the strategy that served them",
		},
		[]string{"strategy"}, // precomputed, genre_affinity
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movie_api_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordDBQuery records the duration and outcome of a single query.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPoolStats publishes connection pool gauges.
func RecordPoolStats(acquired, idle, total int32) {
	DBPoolConns.WithLabelValues("acquired").Set(float64(acquired))
	DBPoolConns.WithLabelValues("idle").Set(float64(idle))
	DBPoolConns.WithLabelValues("total").Set(float64(total))
}
