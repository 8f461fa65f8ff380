package watch

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/u-ctf/operator-core/instrument"
)

// DefaultBackoff paces retries when a watch cannot be re-established.
var DefaultBackoff = wait.Backoff{
	Duration: 100 * time.Millisecond,
	Factor:   2,
	Jitter:   0.1,
	Steps:    1 << 30,
	Cap:      30 * time.Second,
}

// Manager creates subscriptions through a Transport and re-creates them
// whenever they close with an error.
type Manager struct {
	transport     Transport
	selector      labels.Selector
	onEvent       EventHandler
	logger        logr.Logger
	metrics       *instrument.Metrics
	recreateDelay time.Duration
	backoff       wait.Backoff

	mu            sync.Mutex
	subscriptions map[string]Subscription
}

type ManagerBuilder struct {
	manager *Manager
	filters []Filter
}

// NewManagerFor starts building a Manager over transport.
func NewManagerFor(transport Transport) *ManagerBuilder {
	return &ManagerBuilder{
		manager: &Manager{
			transport:     transport,
			logger:        logr.Discard(),
			backoff:       DefaultBackoff,
			subscriptions: make(map[string]Subscription),
		},
	}
}

// WithSelector narrows every subscription to the matching labels.
func (b *ManagerBuilder) WithSelector(selector labels.Selector) *ManagerBuilder {
	b.manager.selector = selector
	return b
}

func (b *ManagerBuilder) WithEventHandler(handler EventHandler) *ManagerBuilder {
	b.manager.onEvent = handler
	return b
}

// WithFilter adds a filter; events must pass all filters to be delivered.
func (b *ManagerBuilder) WithFilter(filter Filter) *ManagerBuilder {
	b.filters = append(b.filters, filter)
	return b
}

func (b *ManagerBuilder) WithLogger(logger logr.Logger) *ManagerBuilder {
	b.manager.logger = logger
	return b
}

func (b *ManagerBuilder) WithMetrics(metrics *instrument.Metrics) *ManagerBuilder {
	b.manager.metrics = metrics
	return b
}

// WithRecreateDelay waits before re-creating a watch that closed with an
// error. The default is to re-create immediately.
func (b *ManagerBuilder) WithRecreateDelay(delay time.Duration) *ManagerBuilder {
	b.manager.recreateDelay = delay
	return b
}

// WithBackoff sets the pacing used when re-establishing a watch fails.
func (b *ManagerBuilder) WithBackoff(backoff wait.Backoff) *ManagerBuilder {
	b.manager.backoff = backoff
	return b
}

func (b *ManagerBuilder) Build() (*Manager, error) {
	if b.manager.transport == nil {
		return nil, errors.New("watch manager needs a transport")
	}
	if b.manager.onEvent == nil {
		return nil, errors.New("watch manager needs an event handler")
	}
	b.manager.onEvent = filtered(b.manager.onEvent, b.filters)
	return b.manager, nil
}

// CreateWatch opens a subscription for namespace with the manager's
// selector. onClose is invoked once when it ends; pass RecreateWatch to keep
// it alive.
func (m *Manager) CreateWatch(ctx context.Context, namespace string, onClose CloseFunc) (Subscription, error) {
	subscription, err := m.transport.Watch(ctx, namespace, m.selector, m.onEvent, onClose)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to watch namespace %q", namespace)
	}

	m.mu.Lock()
	m.subscriptions[namespace] = subscription
	m.mu.Unlock()

	m.logger.V(1).Info("Watch created", "namespace", namespace, "selector", m.selectorString())
	return subscription, nil
}

// RecreateWatch returns a CloseFunc that ignores clean closes and replaces a
// failed subscription with a new one for the same namespace and selector,
// handing it the same behavior.
func (m *Manager) RecreateWatch(ctx context.Context, namespace string) CloseFunc {
	return func(err error) {
		m.metrics.RecordWatchClosed(namespace, err)

		if err == nil {
			m.forget(namespace)
			m.logger.V(1).Info("Watch closed", "namespace", namespace)
			return
		}

		m.logger.Error(err, "Watch closed with an error, re-creating it", "namespace", namespace)
		m.recreate(ctx, namespace)
	}
}

func (m *Manager) recreate(ctx context.Context, namespace string) {
	if m.recreateDelay > 0 && !sleep(ctx, m.recreateDelay) {
		m.forget(namespace)
		return
	}

	backoff := m.backoff
	for {
		if ctx.Err() != nil {
			m.forget(namespace)
			return
		}

		_, err := m.CreateWatch(ctx, namespace, m.RecreateWatch(ctx, namespace))
		m.metrics.RecordWatchRecreated(namespace, err)
		if err == nil {
			return
		}

		next := backoff.Step()
		m.logger.Error(err, "Failed to re-create watch", "namespace", namespace, "retryIn", next.String())
		if !sleep(ctx, next) {
			m.forget(namespace)
			return
		}
	}
}

// Subscription returns the current subscription for namespace, if any.
func (m *Manager) Subscription(namespace string) (Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subscription, ok := m.subscriptions[namespace]
	return subscription, ok
}

// StopAll stops every current subscription and waits for them to close.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	subscriptions := make([]Subscription, 0, len(m.subscriptions))
	for _, subscription := range m.subscriptions {
		subscriptions = append(subscriptions, subscription)
	}
	m.mu.Unlock()

	for _, subscription := range subscriptions {
		subscription.Stop()
	}
	for _, subscription := range subscriptions {
		select {
		case <-subscription.Done():
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "failed waiting for watches to stop")
		}
	}
	return nil
}

func (m *Manager) forget(namespace string) {
	m.mu.Lock()
	delete(m.subscriptions, namespace)
	m.mu.Unlock()
}

func (m *Manager) selectorString() string {
	if m.selector == nil {
		return ""
	}
	return m.selector.String()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
