// Package instrument carries the observability plumbing shared by the
// Coordinator and the watch machinery: spans, sentry-aware logging and
// prometheus metrics.
package instrument

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Tracer starts the spans wrapping reconciliations.
type Tracer interface {
	StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}
