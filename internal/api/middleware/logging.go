package middleware

import (
	"net/http"
	"time"

	"github.com/diagnosai/backend/internal/infrastructure/observability"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		// The mux fills in r.Pattern while routing.
		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}

		logger := observability.LoggerFromContext(r.Context())
		event := logger.Info()
		if rw.statusCode >= http.StatusInternalServerError {
			event = logger.Error()
		} else if rw.statusCode >= http.StatusBadRequest {
			event = logger.Warn()
		}

		event.
			Str("method", r.Method).
			Str("route", route).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *loggingResponseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *loggingResponseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
