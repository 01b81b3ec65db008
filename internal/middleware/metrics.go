package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mkulima/asha/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedPath labels requests that matched no route so scanners cannot
// inflate label cardinality.
const unmatchedPath = "unmatched"

// Metrics creates middleware for collecting HTTP metrics: request count,
// duration, request size and response size.
//
// The path label is the chi route pattern ("/asha/chat"), not the raw URL.
//
// Example Prometheus queries:
//
//	# Error rate percentage
//	sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m]))
//
//	# P95 chat latency
//	histogram_quantile(0.95, rate(http_request_duration_seconds_bucket{path="/asha/chat"}[5m]))
//
// Usage:
//
//	r.Use(middleware.Metrics())
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				routePattern(r),
				strconv.Itoa(ww.Status()),
				r.ContentLength,
				ww.BytesWritten(),
				time.Since(start),
			)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedPath
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
//
// Usage:
//
//	r.Handle("/metrics", middleware.MetricsHandler())
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
