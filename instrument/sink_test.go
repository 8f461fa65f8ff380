package instrument

import (
	"sync"

	"github.com/go-logr/logr"
)

type logEntry struct {
	level  int
	msg    string
	err    error
	values map[string]any
}

// recordingSink keeps every entry it receives, values included.
type recordingSink struct {
	mu      *sync.Mutex
	entries *[]logEntry
	values  []any
}

var _ logr.LogSink = &recordingSink{}

func newRecordingSink() *recordingSink {
	return &recordingSink{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (s *recordingSink) Init(logr.RuntimeInfo) {}

func (s *recordingSink) Enabled(int) bool { return true }

func (s *recordingSink) record(level int, err error, msg string, keysAndValues []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := keysAndValuesToMap(append(append([]any{}, s.values...), keysAndValues...)...)
	*s.entries = append(*s.entries, logEntry{level: level, msg: msg, err: err, values: values})
}

func (s *recordingSink) Info(level int, msg string, keysAndValues ...any) {
	s.record(level, nil, msg, keysAndValues)
}

func (s *recordingSink) Error(err error, msg string, keysAndValues ...any) {
	s.record(0, err, msg, keysAndValues)
}

func (s *recordingSink) WithValues(keysAndValues ...any) logr.LogSink {
	return &recordingSink{mu: s.mu, entries: s.entries, values: append(append([]any{}, s.values...), keysAndValues...)}
}

func (s *recordingSink) WithName(string) logr.LogSink { return s }

func (s *recordingSink) all() []logEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logEntry{}, *s.entries...)
}
