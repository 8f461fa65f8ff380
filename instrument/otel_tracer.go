package instrument

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type OtelTracer struct {
	trace.Tracer
}

var _ Tracer = &OtelTracer{}

func NewOtelTracer(t trace.Tracer) *OtelTracer {
	return &OtelTracer{
		Tracer: t,
	}
}

func (t *OtelTracer) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.Start(ctx, spanName, opts...)
}
