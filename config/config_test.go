package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LockTimeout != DefaultLockTimeout {
		t.Errorf("expected lock timeout %v, got %v", DefaultLockTimeout, cfg.LockTimeout)
	}
	if cfg.ResyncInterval != DefaultResyncInterval {
		t.Errorf("expected resync interval %v, got %v", DefaultResyncInterval, cfg.ResyncInterval)
	}
	if cfg.RecreateDelay() != 0 {
		t.Errorf("expected immediate watch re-creation, got %v", cfg.RecreateDelay())
	}
	if ns := cfg.WatchNamespaces(); len(ns) != 1 || ns[0] != "" {
		t.Errorf("expected every namespace, got %v", ns)
	}
	if selector, err := cfg.Selector(); err != nil || selector != nil {
		t.Errorf("expected no selector, got %v (%v)", selector, err)
	}
}

func TestLoad_DecodesValues(t *testing.T) {
	cfg, err := Load(map[string]any{
		"namespaces":         "a,b",
		"labelSelector":      "app=kafka",
		"lockTimeout":        "3s",
		"resyncInterval":     "1m",
		"resyncConcurrency":  "8",
		"watchRecreateDelay": "500ms",
		"watchBackoff": map[string]any{
			"initial": "1s",
			"max":     "1m",
			"factor":  "1.5",
		},
		"sentry": map[string]any{"dsn": "https://key@sentry.example.com/1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Namespaces) != 2 || cfg.Namespaces[0] != "a" || cfg.Namespaces[1] != "b" {
		t.Errorf("unexpected namespaces %v", cfg.Namespaces)
	}
	if cfg.LockTimeout != 3*time.Second || cfg.ResyncInterval != time.Minute || cfg.ResyncConcurrency != 8 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.RecreateDelay() != 500*time.Millisecond {
		t.Errorf("unexpected recreate delay %v", cfg.RecreateDelay())
	}

	backoff := cfg.Backoff()
	if backoff.Duration != time.Second || backoff.Cap != time.Minute || backoff.Factor != 1.5 {
		t.Errorf("unexpected backoff %+v", backoff)
	}

	selector, err := cfg.Selector()
	if err != nil || selector.String() != "app=kafka" {
		t.Errorf("unexpected selector %v (%v)", selector, err)
	}
	if cfg.Sentry.DSN != "https://key@sentry.example.com/1" {
		t.Errorf("unexpected sentry dsn %q", cfg.Sentry.DSN)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{name: "negative lock timeout", raw: map[string]any{"lockTimeout": "-1s"}},
		{name: "zero lock timeout", raw: map[string]any{"lockTimeout": "0s"}},
		{name: "negative resync", raw: map[string]any{"resyncInterval": "-1m"}},
		{name: "no concurrency", raw: map[string]any{"resyncConcurrency": 0}},
		{name: "negative delay", raw: map[string]any{"watchRecreateDelay": "-1s"}},
		{name: "negative backoff", raw: map[string]any{"watchBackoff": map[string]any{"max": "-1s"}}},
		{name: "bad selector", raw: map[string]any{"labelSelector": "app in (("}},
		{name: "bad duration", raw: map[string]any{"lockTimeout": "soon"}},
		{name: "unknown key", raw: map[string]any{"lockTimout": "1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.raw); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestFromEnviron(t *testing.T) {
	raw := FromEnviron([]string{
		"PATH=/usr/bin",
		"OPCORE_LOCK_TIMEOUT=5s",
		"OPCORE_NAMESPACES=a,b",
		"OPCORE_WATCH_BACKOFF__MAX=10s",
		"OPCORE_SENTRY__DSN=https://key@sentry.example.com/1",
		"OPCORE_SENTRY__TRACES_SAMPLE_RATE=0.5",
		"MALFORMED",
	})

	cfg, err := Load(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LockTimeout != 5*time.Second {
		t.Errorf("unexpected lock timeout %v", cfg.LockTimeout)
	}
	if len(cfg.Namespaces) != 2 {
		t.Errorf("unexpected namespaces %v", cfg.Namespaces)
	}
	if cfg.WatchBackoff.Max != 10*time.Second {
		t.Errorf("unexpected backoff max %v", cfg.WatchBackoff.Max)
	}
	if cfg.WatchBackoff.Initial != Default().WatchBackoff.Initial {
		t.Errorf("expected unset backoff fields to keep their default, got %v", cfg.WatchBackoff.Initial)
	}
	if cfg.Sentry.DSN != "https://key@sentry.example.com/1" || cfg.Sentry.TracesSampleRate != 0.5 {
		t.Errorf("unexpected sentry config %+v", cfg.Sentry)
	}
}
