package telemetry

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the instrumentation scope for HTTP server spans
	TracerName = "github.com/verinode/token-registry-server/http"

	// MaxUserAgentLength caps the recorded User-Agent attribute to keep
	// span payloads bounded
	MaxUserAgentLength = 256
)

// untracedPaths are probe endpoints that would otherwise dominate the trace
// volume without carrying any useful information.
var untracedPaths = map[string]struct{}{
	"/health":    {},
	"/readiness": {},
}

// TracingMiddleware creates HTTP middleware that opens a server span per
// request and joins incoming W3C trace context. A nil provider yields a
// pass-through middleware.
func TracingMiddleware(provider trace.TracerProvider) func(http.Handler) http.Handler {
	if provider == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	tracer := provider.Tracer(TracerName)
	propagator := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := untracedPaths[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// The span opens under the raw path; once chi has routed the
			// request the name is rewritten to the route pattern so path
			// parameters do not fan out into distinct span names.
			ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.UserAgentOriginal(truncateUserAgent(r.UserAgent())),
				),
			)
			defer span.End()

			next.ServeHTTP(ww, r.WithContext(ctx))

			closeSpan(span, r, ww.Status())
		})
	}
}

// closeSpan renames the span to the resolved route, attaches the response
// attributes, and maps the status code onto the span status. Only 5xx marks
// the span as failed; a 4xx is a correctly handled client error and stays
// Unset per semantic conventions.
func closeSpan(span trace.Span, r *http.Request, statusCode int) {
	pattern := routePattern(r)

	span.SetName(fmt.Sprintf("%s %s", r.Method, pattern))
	span.SetAttributes(
		semconv.HTTPRouteKey.String(pattern),
		semconv.HTTPResponseStatusCode(statusCode),
	)

	switch {
	case statusCode >= 500:
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	case statusCode < 400:
		span.SetStatus(codes.Ok, "")
	}
}

// truncateUserAgent bounds a User-Agent string to MaxUserAgentLength bytes.
func truncateUserAgent(ua string) string {
	if len(ua) > MaxUserAgentLength {
		return ua[:MaxUserAgentLength]
	}
	return ua
}
