// Package metrics owns the Prometheus collectors for the service. Every
// collector is registered in the default registry at init and exposed
// through the /metrics endpoint.
//
// Collectors live in their own package so the storage, upstream and HTTP
// layers can record into them without importing each other.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpRequestsTotal counts all HTTP requests by method, path, and status.
	//
	// Labels: method (GET, POST), path (/asha/chat), status (200, 404, 500)
	// Type: Counter
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration measures request processing time (P50, P95, P99).
	//
	// Labels: method, path
	// Type: Histogram
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpRequestSize tracks request body sizes.
	//
	// Buckets: Exponential from 100 bytes to 1 GB
	httpRequestSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// httpResponseSize tracks response body sizes.
	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// authAttemptsTotal counts bearer token verifications by result.
	//
	// Labels: result (success, missing_token, invalid_token, ...)
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asha_auth_attempts_total",
			Help: "Total number of bearer token verifications",
		},
		[]string{"result"},
	)

	// chatTurnsTotal counts completed conversational turns by classified intent.
	chatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asha_chat_turns_total",
			Help: "Total number of chat turns by intent",
		},
		[]string{"intent"},
	)

	// upstreamRequestsTotal counts calls to external collaborators
	// (document store, token endpoint, key set, forecast, language model).
	//
	// Labels: service, operation, status (HTTP status or "error")
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asha_upstream_requests_total",
			Help: "Total number of requests to upstream services",
		},
		[]string{"service", "operation", "status"},
	)

	// upstreamRequestDuration measures upstream latency.
	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asha_upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	// dbQueriesTotal counts database queries by database, operation, and status.
	//
	// Labels: database (postgres, supabase, redis), operation (SELECT, UPSERT, ...), status (success, error)
	dbQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"},
	)

	// dbQueryDuration measures database query execution time.
	dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"database", "operation"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		httpRequestSize,
		httpResponseSize,
		authAttemptsTotal,
		chatTurnsTotal,
		upstreamRequestsTotal,
		upstreamRequestDuration,
		dbQueriesTotal,
		dbQueryDuration,
	)
}

// ObserveHTTPRequest records one served request. requestSize is skipped
// when the body length is unknown.
func ObserveHTTPRequest(method, path, status string, requestSize int64, responseSize int, duration time.Duration) {
	if requestSize > 0 {
		httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// IncrementAuthAttempts increments the bearer verification counter.
//
// Example:
//
//	uid, err := verifier.Verify(ctx, header)
//	if err != nil {
//	    metrics.IncrementAuthAttempts("invalid_token")
//	}
func IncrementAuthAttempts(result string) {
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// IncrementChatTurn counts a completed chat turn for intent.
func IncrementChatTurn(intent string) {
	chatTurnsTotal.WithLabelValues(intent).Inc()
}

// RecordUpstream records one call to an external service.
//
// Parameters:
//   - service: "firestore", "oauth", "jwks", "forecast" or "llm"
//   - operation: Call name (e.g., "get", "run_query", "token")
//   - status: HTTP status code as a string, or "error" for transport failures
//   - duration: Round-trip time
func RecordUpstream(service, operation, status string, duration time.Duration) {
	upstreamRequestsTotal.WithLabelValues(service, operation, status).Inc()
	upstreamRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordDBQuery records database query metrics including count and duration.
//
// Example:
//
//	start := time.Now()
//	err := db.QueryRowContext(ctx, query, id).Scan(&row)
//	metrics.RecordDBQuery("postgres", "SELECT", metrics.Status(err), time.Since(start))
func RecordDBQuery(database, operation, status string, duration time.Duration) {
	dbQueriesTotal.WithLabelValues(database, operation, status).Inc()
	dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// Status maps an error to the "success"/"error" label value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
