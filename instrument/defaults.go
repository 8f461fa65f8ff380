package instrument

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// NilTracer never records anything. It hands back whatever span is already on the context.
type NilTracer struct{}

var _ Tracer = &NilTracer{}

func (nt *NilTracer) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}
