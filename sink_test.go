package opcore_test

import (
	"sync"

	"github.com/go-logr/logr"

	"github.com/u-ctf/operator-core/instrument"
)

type logEntry struct {
	msg      string
	err      error
	severity any
}

// recordingSink keeps every entry it receives.
type recordingSink struct {
	mu      *sync.Mutex
	entries *[]logEntry
}

var _ logr.LogSink = &recordingSink{}

func newRecordingLogger() (logr.Logger, *recordingSink) {
	sink := &recordingSink{mu: &sync.Mutex{}, entries: &[]logEntry{}}
	return logr.New(sink), sink
}

func (s *recordingSink) Init(logr.RuntimeInfo) {}

func (s *recordingSink) Enabled(int) bool { return true }

func (s *recordingSink) record(err error, msg string, keysAndValues []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := logEntry{msg: msg, err: err}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if keysAndValues[i] == instrument.SeverityKey {
			entry.severity = keysAndValues[i+1]
		}
	}
	*s.entries = append(*s.entries, entry)
}

func (s *recordingSink) Info(_ int, msg string, keysAndValues ...any) {
	s.record(nil, msg, keysAndValues)
}

func (s *recordingSink) Error(err error, msg string, keysAndValues ...any) {
	s.record(err, msg, keysAndValues)
}

func (s *recordingSink) WithValues(...any) logr.LogSink { return s }

func (s *recordingSink) WithName(string) logr.LogSink { return s }

func (s *recordingSink) errors() []logEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []logEntry
	for _, e := range *s.entries {
		if e.err != nil {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) warnings() []logEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []logEntry
	for _, e := range *s.entries {
		if e.severity == instrument.SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) has(msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range *s.entries {
		if e.msg == msg {
			return true
		}
	}
	return false
}
