package instrument

import (
	"context"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// SentryTracer makes sure every span runs with its own sentry hub on the
// context, so breadcrumbs and captured errors stay scoped to one reconciliation.
type SentryTracer struct {
	tracer trace.Tracer
}

var _ Tracer = &SentryTracer{}

// NewSentryTracer wraps t. A nil t only attaches hubs and records no spans.
func NewSentryTracer(t trace.Tracer) *SentryTracer {
	if t == nil {
		t = noop.NewTracerProvider().Tracer("")
	}
	return &SentryTracer{
		tracer: t,
	}
}

func (t *SentryTracer) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if sentry.GetHubFromContext(ctx) == nil {
		ctx = sentry.SetHubOnContext(ctx, sentry.CurrentHub().Clone())
	}

	return t.tracer.Start(ctx, spanName, opts...)
}
