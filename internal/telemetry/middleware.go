package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsMeterName is the instrumentation scope for HTTP server metrics
const HTTPMetricsMeterName = "github.com/verinode/token-registry-server/http"

// HTTPMetrics records request throughput, latency, and in-flight counts for
// the admin API.
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

// NewHTTPMetrics creates the HTTP server instruments on the given provider.
// A nil provider yields nil, which Middleware treats as a pass-through.
func NewHTTPMetrics(provider metric.MeterProvider) (*HTTPMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(HTTPMetricsMeterName)

	requestDuration, err := meter.Float64Histogram(
		"vtr_admin_api_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	requestsTotal, err := meter.Int64Counter(
		"vtr_admin_api_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"vtr_admin_api_http_active_requests",
		metric.WithDescription("Number of currently in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requestDuration: requestDuration,
		requestsTotal:   requestsTotal,
		activeRequests:  activeRequests,
	}, nil
}

// Middleware returns an HTTP middleware that records metrics for each
// request. On a nil receiver it passes requests through untouched.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The request context may be cancelled by the time ServeHTTP
		// returns, so capture it up front for the instrument calls.
		ctx := r.Context()
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		m.activeRequests.Add(ctx, 1)
		next.ServeHTTP(ww, r)
		m.activeRequests.Add(ctx, -1)

		m.record(ctx, r, ww.Status(), time.Since(start))
	})
}

// record registers one completed request on the duration and count
// instruments. The route attribute is the chi pattern, which is resolved
// only after routing has run.
func (m *HTTPMetrics) record(ctx context.Context, r *http.Request, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", r.Method),
		attribute.String("route", routePattern(r)),
		attribute.String("status_code", strconv.Itoa(status)),
	)

	m.requestDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.requestsTotal.Add(ctx, 1, attrs)
}

// routePattern resolves the chi route pattern for a request, for example
// "/tokens/{tokenID}" rather than "/tokens/42". Requests that never matched
// a route all share one bucket so arbitrary paths cannot blow up metric
// cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unknown_route"
}

// MetricsMiddleware builds the HTTP metrics middleware straight from a meter
// provider. A nil provider yields a pass-through middleware.
func MetricsMiddleware(provider metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	metrics, err := NewHTTPMetrics(provider)
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return metrics.Middleware(next)
	}, nil
}
