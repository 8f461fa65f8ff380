package instrument

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-logr/logr"
)

// NewSentryLoggerFunc returns a logger func whose loggers also report to the
// sentry hub found on the context: Info entries become breadcrumbs and Error
// entries are captured as exceptions.
func NewSentryLoggerFunc(logger logr.Logger) func(ctx context.Context) logr.Logger {
	return func(ctx context.Context) logr.Logger {
		return logger.WithSink(NewSentrySink(ctx, logger.GetSink()))
	}
}

type sentrySink struct {
	context.Context
	logr.LogSink

	values map[string]any
}

var _ logr.LogSink = &sentrySink{}

func NewSentrySink(ctx context.Context, logSink logr.LogSink) *sentrySink {
	return &sentrySink{
		Context: ctx,
		LogSink: logSink,
		values:  make(map[string]any),
	}
}

func keysAndValuesToMap(keysAndValues ...any) map[string]any {
	if len(keysAndValues)%2 != 0 {
		keysAndValues = append(keysAndValues, "unknown")
	}

	m := make(map[string]any)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		m[fmt.Sprint(keysAndValues[i])] = fmt.Sprint(keysAndValues[i+1])
	}
	return m
}

func (s *sentrySink) Info(level int, msg string, keysAndValues ...any) {
	s.LogSink.Info(level, msg, keysAndValues...)

	hub := sentry.GetHubFromContext(s.Context)
	if hub == nil {
		return
	}

	data := keysAndValuesToMap(keysAndValues...)
	maps.Copy(data, s.values)

	breadcrumbLevel := sentry.LevelInfo
	if level > 0 {
		breadcrumbLevel = sentry.LevelDebug
	}
	if data[SeverityKey] == SeverityWarning {
		breadcrumbLevel = sentry.LevelWarning
	}

	hint := sentry.BreadcrumbHint(data)
	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Level:     breadcrumbLevel,
		Message:   msg,
		Data:      data,
		Type:      "log",
		Timestamp: time.Now(),
	}, &hint)
}

func (s *sentrySink) Error(err error, msg string, keysAndValues ...any) {
	s.LogSink.Error(err, msg, keysAndValues...)

	hub := sentry.GetHubFromContext(s.Context)
	if hub == nil {
		return
	}

	data := keysAndValuesToMap(keysAndValues...)
	maps.Copy(data, s.values)

	hub.WithScope(func(scope *sentry.Scope) {
		for key, value := range data {
			scope.SetTag(key, fmt.Sprint(value))
		}
		scope.SetTag("log.message", msg)
		hub.CaptureException(err)
	})
}

func (s *sentrySink) Enabled(level int) bool {
	return s.LogSink.Enabled(level)
}

func (s *sentrySink) WithValues(keysAndValues ...any) logr.LogSink {
	newValues := keysAndValuesToMap(keysAndValues...)
	maps.Copy(newValues, s.values)

	return &sentrySink{
		Context: s.Context,
		LogSink: s.LogSink.WithValues(keysAndValues...),
		values:  newValues,
	}
}

func (s *sentrySink) WithName(name string) logr.LogSink {
	return &sentrySink{
		Context: s.Context,
		LogSink: s.LogSink.WithName(name),
		values:  s.values,
	}
}
