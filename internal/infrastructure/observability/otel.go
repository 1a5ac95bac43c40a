package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/diagnosai/backend"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount     metric.Int64Counter
	RequestDuration  metric.Float64Histogram
	CacheHitCount    metric.Int64Counter
	CacheMissCount   metric.Int64Counter
	UpstreamDuration metric.Float64Histogram
}

// Setup initializes OpenTelemetry tracing and metrics exporters
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		_ = meterProvider.Shutdown(ctx)
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			meterProvider.Shutdown(ctx),
			tracerProvider.Shutdown(ctx),
		)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics on the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCount, err := meter.Int64Counter(
		"cache.hit.count",
		metric.WithDescription("Number of cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCount, err := meter.Int64Counter(
		"cache.miss.count",
		metric.WithDescription("Number of cache misses"),
	)
	if err != nil {
		return nil, err
	}

	upstreamDuration, err := meter.Float64Histogram(
		"upstream.request.duration",
		metric.WithDescription("Upstream API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:     requestCount,
		RequestDuration:  requestDuration,
		CacheHitCount:    cacheHitCount,
		CacheMissCount:   cacheMissCount,
		UpstreamDuration: upstreamDuration,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// RecordRequestMetric records an HTTP request metric
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, route string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	)

	metrics.RequestCount.Add(ctx, 1, attrs)
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordCacheHit records a cache hit for a key namespace
func RecordCacheHit(ctx context.Context, metrics *Metrics, namespace string) {
	if metrics == nil {
		return
	}
	metrics.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.namespace", namespace)))
}

// RecordCacheMiss records a cache miss for a key namespace
func RecordCacheMiss(ctx context.Context, metrics *Metrics, namespace string) {
	if metrics == nil {
		return
	}
	metrics.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.namespace", namespace)))
}

// RecordUpstreamCall records the duration and outcome of an upstream API call
func RecordUpstreamCall(ctx context.Context, metrics *Metrics, upstream string, duration time.Duration, err error) {
	if metrics == nil {
		return
	}
	metrics.UpstreamDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("upstream", upstream),
		attribute.Bool("error", err != nil),
	))
}
