package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/pulsewatch/pulsewatch/internal/api/middleware"

// Metrics holds the OpenTelemetry metrics instruments.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestTotal     metric.Int64Counter
	requestsInFlight metric.Int64UpDownCounter
	responseSize     metric.Int64Histogram
}

// NewMetrics creates a new Metrics instance with initialized instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP server requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestsInFlight, err := meter.Int64UpDownCounter(
		"http.server.requests_in_flight",
		metric.WithDescription("Number of HTTP requests currently being processed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	responseSize, err := meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("Size of HTTP server responses in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		requestsInFlight: requestsInFlight,
		responseSize:     responseSize,
	}, nil
}

// Middleware returns an HTTP middleware that records metrics for each request.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Track request in flight
			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
			}
			m.requestsInFlight.Add(r.Context(), 1, metric.WithAttributes(attrs...))
			defer m.requestsInFlight.Add(r.Context(), -1, metric.WithAttributes(attrs...))

			// Wrap response writer
			wrapped := newMetricsResponseWriter(w)

			// Process request
			next.ServeHTTP(wrapped, r)

			// Calculate duration
			duration := time.Since(start).Seconds()

			// Build attributes with status code
			attrs = append(attrs, attribute.String("http.status_code", strconv.Itoa(wrapped.statusCode)))

			// Add error attribute for 4xx/5xx responses
			if wrapped.statusCode >= 400 {
				attrs = append(attrs, attribute.Bool("error", true))
			}

			// Record metrics
			m.requestDuration.Record(r.Context(), duration, metric.WithAttributes(attrs...))
			m.requestTotal.Add(r.Context(), 1, metric.WithAttributes(attrs...))
			m.responseSize.Record(r.Context(), wrapped.written, metric.WithAttributes(attrs...))
		})
	}
}

// metricsResponseWriter wraps http.ResponseWriter to capture response metadata.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// ExecutionMetrics holds metrics for indicator executions.
type ExecutionMetrics struct {
	executionDuration metric.Float64Histogram
	executionTotal    metric.Int64Counter
	alertsRaised      metric.Int64Counter
}

// NewExecutionMetrics creates metrics for monitoring indicator executions.
func NewExecutionMetrics() (*ExecutionMetrics, error) {
	meter := otel.Meter(meterName)

	executionDuration, err := meter.Float64Histogram(
		"indicator.execution.duration",
		metric.WithDescription("Duration of indicator executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	executionTotal, err := meter.Int64Counter(
		"indicator.execution.total",
		metric.WithDescription("Total number of indicator executions"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, err
	}

	alertsRaised, err := meter.Int64Counter(
		"indicator.alerts.raised",
		metric.WithDescription("Number of alerts raised by executions"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	return &ExecutionMetrics{
		executionDuration: executionDuration,
		executionTotal:    executionTotal,
		alertsRaised:      alertsRaised,
	}, nil
}

// RecordExecution records the outcome of a single indicator run.
func (m *ExecutionMetrics) RecordExecution(collectorID, result string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("collector.id", collectorID),
		attribute.String("execution.result", result),
	}

	// Use background context for metrics to avoid context cancellation issues
	ctx := context.TODO()
	m.executionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.executionTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAlert records an alert raised during an execution.
func (m *ExecutionMetrics) RecordAlert(indicatorID, severity string) {
	attrs := []attribute.KeyValue{
		attribute.String("indicator.id", indicatorID),
		attribute.String("alert.severity", severity),
	}
	m.alertsRaised.Add(context.TODO(), 1, metric.WithAttributes(attrs...))
}
