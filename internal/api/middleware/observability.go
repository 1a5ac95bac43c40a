package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/diagnosai/backend/internal/infrastructure/observability"
)

// ObservabilityMiddleware adds OpenTelemetry tracing and metrics to HTTP requests
func ObservabilityMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := observability.StartSpan(r.Context(), r.Method+" "+r.URL.Path)
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.user_agent", r.UserAgent()),
			)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			req := r.WithContext(ctx)
			start := time.Now()

			next.ServeHTTP(rw, req)

			// Use the matched pattern rather than the raw path to keep cardinality low.
			route := req.Pattern
			if route == "" {
				route = "unmatched"
			} else {
				span.SetName(route)
			}

			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rw.statusCode, time.Since(start))
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", rw.statusCode),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}
