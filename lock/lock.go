// Package lock provides named, timeout-bounded mutual exclusion.
//
// Waiting for a lock only suspends the calling goroutine: it never holds any
// process-wide mutex while waiting, so locks with different names never
// contend with each other.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// DefaultTimeout is the acquisition timeout used when a caller passes zero.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is matched (errors.Is) by every error returned when a lock could
// not be acquired before its timeout elapsed.
var ErrTimeout = errors.New("unable to acquire lock")

// TimeoutError reports which lock could not be acquired and how long the
// caller waited for it.
type TimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s within %s", ErrTimeout.Error(), e.Name, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Manager owns a namespace of named locks. The zero value is not usable, use
// NewManager.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func NewManager() *Manager {
	return &Manager{
		locks: make(map[string]*entry),
	}
}

// Handle is the ownership token of an acquired lock.
type Handle struct {
	name    string
	manager *Manager
	entry   *entry
	once    sync.Once
}

// Name returns the name of the lock held by this handle.
func (h *Handle) Name() string {
	return h.name
}

// Release gives the lock back. Calling it more than once is a no-op.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.entry.sem.Release(1)
		h.manager.unref(h.name, h.entry)
	})
}

func (m *Manager) ref(name string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[name]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		m.locks[name] = e
	}
	e.refs++
	return e
}

func (m *Manager) unref(name string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.locks, name)
	}
}

// Acquire waits up to timeout for the lock called name. A zero or negative
// timeout means DefaultTimeout. When the timeout elapses the returned error
// matches ErrTimeout; when ctx ends first the context error is returned.
func (m *Manager) Acquire(ctx context.Context, name string, timeout time.Duration) (*Handle, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	e := m.ref(name)

	acquireCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := e.sem.Acquire(acquireCtx, 1); err != nil {
		m.unref(name, e)
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "failed to acquire lock %s", name)
		}
		return nil, &TimeoutError{Name: name, Timeout: timeout}
	}

	return &Handle{
		name:    name,
		manager: m,
		entry:   e,
	}, nil
}

// Len returns the number of lock names currently held or waited on.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.locks)
}

// Do runs body while holding the lock called name. The lock is released when
// body returns, reports an error or panics. If the lock cannot be acquired,
// body is never invoked.
func (m *Manager) Do(ctx context.Context, name string, timeout time.Duration, body func(ctx context.Context) error) error {
	_, err := WithLock(ctx, m, name, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, body(ctx)
	})
	return err
}

// WithLock is the value-returning form of Manager.Do.
func WithLock[T any](ctx context.Context, m *Manager, name string, timeout time.Duration, body func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	handle, err := m.Acquire(ctx, name, timeout)
	if err != nil {
		return zero, err
	}
	defer handle.Release()

	return body(ctx)
}
