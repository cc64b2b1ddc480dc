// Package otel carries the shared OpenTelemetry helpers and the span
// attribute vocabulary used across the registry server.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared across packages so traces stay queryable under one
// consistent vocabulary.
const (
	// AttrTokenID is the numeric identifier an operation acted on
	AttrTokenID = attribute.Key("token.id")

	// AttrTokenSymbol is the symbol of the token an operation acted on
	AttrTokenSymbol = attribute.Key("token.symbol")

	// AttrResultCount is the number of records an operation returned
	AttrResultCount = attribute.Key("result.count")
)

// StartSpan opens a span on the tracer, or hands back whatever span the
// context already carries when the tracer is nil. Code instrumented this
// way works unchanged with tracing off.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError marks the span failed and attaches the error as an event.
// The status description stays generic: storage errors can carry connection
// strings and must not leak into the trace status. Nil span or nil error is
// a no-op.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "operation failed")
}
