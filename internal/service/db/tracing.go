package database

import (
	"context"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/verinode/token-registry-server/internal/otel"
)

// ServiceTracerName is the instrumentation scope for storage spans
const ServiceTracerName = "github.com/verinode/token-registry-server/service/db"

// startSpan opens a span for one storage call. Every storage span carries
// the db.system attribute so trace backends can group them; a nil tracer
// degrades to the span already in the context.
func (s *dbService) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append([]trace.SpanStartOption{trace.WithAttributes(semconv.DBSystemPostgreSQL)}, opts...)
	return otel.StartSpan(ctx, s.tracer, name, opts...)
}
