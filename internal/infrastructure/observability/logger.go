package observability

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// InitLogger initializes the global zerolog logger
func InitLogger(serviceName, env string) {
	initLogger(os.Stdout, serviceName, env)
}

func initLogger(out io.Writer, serviceName, env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Str("service", serviceName).
			Logger()
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}

	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// LoggerFromContext returns a logger with trace context
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := log.With().Logger()

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return &logger
}
