// Package tracing sets up error reporting for the operator process.
package tracing

import (
	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
)

// SentryOptions configures InitSentry.
type SentryOptions struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	Debug            bool
}

// InitSentry initialises the global sentry client. It does nothing and
// returns false when no DSN is configured.
func InitSentry(opts SentryOptions) (bool, error) {
	if opts.DSN == "" {
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		Debug:            opts.Debug,
		SendDefaultPII:   false,
		EnableTracing:    opts.TracesSampleRate > 0,
		TracesSampleRate: opts.TracesSampleRate,
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to initialise sentry")
	}
	return true, nil
}
