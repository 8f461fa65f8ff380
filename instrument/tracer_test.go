package instrument

import (
	"context"
	"testing"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNilTracer_ReturnsContextSpan(t *testing.T) {
	ctx := context.Background()

	got, span := (&NilTracer{}).StartSpan(ctx, "Reconcile Kafka")
	if got != ctx {
		t.Errorf("expected the context to be returned untouched")
	}
	if span.SpanContext().IsValid() {
		t.Errorf("expected a non-recording span")
	}
	span.End()
}

func TestSentryTracer_AttachesHub(t *testing.T) {
	tracer := NewSentryTracer(nil)

	ctx, span := tracer.StartSpan(context.Background(), "Reconcile Kafka")
	defer span.End()

	if sentry.GetHubFromContext(ctx) == nil {
		t.Errorf("expected a sentry hub on the span context")
	}
}

func TestSentryTracer_KeepsExistingHub(t *testing.T) {
	hub := sentry.CurrentHub().Clone()
	ctx := sentry.SetHubOnContext(context.Background(), hub)

	ctx, span := NewSentryTracer(nil).StartSpan(ctx, "Reconcile Kafka")
	defer span.End()

	if sentry.GetHubFromContext(ctx) != hub {
		t.Errorf("expected the existing hub to be kept")
	}
}

func TestOtelTracer_Delegates(t *testing.T) {
	tracer := NewOtelTracer(noop.NewTracerProvider().Tracer("test"))

	ctx, span := tracer.StartSpan(context.Background(), "Reconcile Kafka")
	defer span.End()

	if ctx == nil {
		t.Errorf("expected a context")
	}
}
