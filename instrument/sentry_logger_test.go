package instrument

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/go-logr/logr"
)

func newBreadcrumbHub(t *testing.T) (*sentry.Hub, func() []*sentry.Breadcrumb) {
	t.Helper()

	var mu sync.Mutex
	var breadcrumbs []*sentry.Breadcrumb

	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeBreadcrumb: func(breadcrumb *sentry.Breadcrumb, hint *sentry.BreadcrumbHint) *sentry.Breadcrumb {
			mu.Lock()
			defer mu.Unlock()
			breadcrumbs = append(breadcrumbs, breadcrumb)
			return breadcrumb
		},
	})
	if err != nil {
		t.Fatalf("unable to create sentry client: %v", err)
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	return hub, func() []*sentry.Breadcrumb {
		mu.Lock()
		defer mu.Unlock()
		return append([]*sentry.Breadcrumb{}, breadcrumbs...)
	}
}

func TestSentrySink_ForwardsToInnerSink(t *testing.T) {
	inner := newRecordingSink()
	logger := NewSentryLoggerFunc(logr.New(inner))(context.Background())

	logger.WithValues("kind", "Kafka").Info("hello", "name", "x")
	logger.Error(errors.New("boom"), "failed")

	entries := inner.all()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].msg != "hello" || entries[0].values["kind"] != "Kafka" || entries[0].values["name"] != "x" {
		t.Errorf("unexpected info entry: %+v", entries[0])
	}
	if entries[1].err == nil || entries[1].msg != "failed" {
		t.Errorf("unexpected error entry: %+v", entries[1])
	}
}

func TestSentrySink_WarningsBecomeWarningBreadcrumbs(t *testing.T) {
	hub, breadcrumbs := newBreadcrumbHub(t)
	ctx := sentry.SetHubOnContext(context.Background(), hub)

	logger := NewSentryLoggerFunc(logr.New(newRecordingSink()))(ctx).WithValues("namespace", "a")

	logger.Info("plain")
	Warn(logger, "contended", "lock", "lock::a::Kind::x")
	logger.V(1).Info("debug")

	got := breadcrumbs()
	if len(got) != 3 {
		t.Fatalf("expected 3 breadcrumbs, got %d", len(got))
	}

	expected := []sentry.Level{sentry.LevelInfo, sentry.LevelWarning, sentry.LevelDebug}
	for i, level := range expected {
		if got[i].Level != level {
			t.Errorf("breadcrumb %d: expected level %q, got %q", i, level, got[i].Level)
		}
	}
	if got[1].Data["namespace"] != "a" {
		t.Errorf("expected logger values to be copied into breadcrumb data, got %v", got[1].Data)
	}
	if got[1].Data["lock"] != "lock::a::Kind::x" {
		t.Errorf("expected entry values in breadcrumb data, got %v", got[1].Data)
	}
}

func TestWarn_MarksSeverity(t *testing.T) {
	inner := newRecordingSink()
	Warn(logr.New(inner), "careful", "reason", "deprecated")

	entries := inner.all()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].err != nil {
		t.Errorf("expected a warning to be logged through Info")
	}
	if entries[0].values[SeverityKey] != SeverityWarning {
		t.Errorf("expected severity %q, got %v", SeverityWarning, entries[0].values[SeverityKey])
	}
	if entries[0].values["reason"] != "deprecated" {
		t.Errorf("expected reason to be kept, got %v", entries[0].values["reason"])
	}
}
