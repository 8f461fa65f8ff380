package opcore

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/u-ctf/operator-core/config"
	"github.com/u-ctf/operator-core/instrument"
	"github.com/u-ctf/operator-core/lock"
	"github.com/u-ctf/operator-core/watch"
)

// DefaultShutdownTimeout bounds how long Start waits for watches to close.
const DefaultShutdownTimeout = 10 * time.Second

// Operator owns the process wide lock manager, keeps one watch per managed
// namespace and kind alive, feeds watch events to the coordinators and runs
// their periodic resync.
type Operator struct {
	locks             *lock.Manager
	logger            logr.Logger
	loggerFunc        func(ctx context.Context) logr.Logger
	metrics           *instrument.Metrics
	namespaces        []string
	lockTimeout       time.Duration
	resyncInterval    time.Duration
	resyncConcurrency int
	recreateDelay     time.Duration
	backoff           wait.Backoff

	mu            sync.Mutex
	started       bool
	registrations []registration
	inflight      sync.WaitGroup
}

type registration struct {
	reconciler ManagedReconciler
	transport  watch.Transport
}

type OperatorBuilder struct {
	operator *Operator
}

func NewOperator() *OperatorBuilder {
	return &OperatorBuilder{
		operator: &Operator{
			locks:             lock.NewManager(),
			logger:            logr.Discard(),
			namespaces:        []string{""},
			lockTimeout:       DefaultLockTimeout,
			resyncInterval:    config.DefaultResyncInterval,
			resyncConcurrency: DefaultResyncConcurrency,
			backoff:           watch.DefaultBackoff,
		},
	}
}

// NewOperatorFromConfig applies cfg on top of the defaults.
func NewOperatorFromConfig(cfg config.Config) *OperatorBuilder {
	return NewOperator().
		WithNamespaces(cfg.WatchNamespaces()...).
		WithLockTimeout(cfg.LockTimeout).
		WithResyncInterval(cfg.ResyncInterval).
		WithResyncConcurrency(cfg.ResyncConcurrency).
		WithWatchRecreateDelay(cfg.RecreateDelay()).
		WithWatchBackoff(cfg.Backoff())
}

func (b *OperatorBuilder) WithLogger(logger logr.Logger) *OperatorBuilder {
	b.operator.logger = logger
	return b
}

// WithLoggerFunc sets the logger func handed to coordinators built with
// NewManagedCoordinatorFor. It defaults to the operator logger.
func (b *OperatorBuilder) WithLoggerFunc(loggerFunc func(ctx context.Context) logr.Logger) *OperatorBuilder {
	b.operator.loggerFunc = loggerFunc
	return b
}

func (b *OperatorBuilder) WithMetrics(metrics *instrument.Metrics) *OperatorBuilder {
	b.operator.metrics = metrics
	return b
}

// WithNamespaces sets the namespaces to watch and resync. An empty string
// stands for every namespace.
func (b *OperatorBuilder) WithNamespaces(namespaces ...string) *OperatorBuilder {
	if len(namespaces) > 0 {
		b.operator.namespaces = namespaces
	}
	return b
}

func (b *OperatorBuilder) WithLockTimeout(timeout time.Duration) *OperatorBuilder {
	b.operator.lockTimeout = timeout
	return b
}

// WithResyncInterval sets the period of the full resync, zero disables it.
func (b *OperatorBuilder) WithResyncInterval(interval time.Duration) *OperatorBuilder {
	b.operator.resyncInterval = interval
	return b
}

func (b *OperatorBuilder) WithResyncConcurrency(concurrency int) *OperatorBuilder {
	b.operator.resyncConcurrency = concurrency
	return b
}

func (b *OperatorBuilder) WithWatchRecreateDelay(delay time.Duration) *OperatorBuilder {
	b.operator.recreateDelay = delay
	return b
}

func (b *OperatorBuilder) WithWatchBackoff(backoff wait.Backoff) *OperatorBuilder {
	b.operator.backoff = backoff
	return b
}

func (b *OperatorBuilder) Build() *Operator {
	if b.operator.loggerFunc == nil {
		b.operator.loggerFunc = instrument.NewLoggerFunc(b.operator.logger)
	}
	return b.operator
}

// NewManagedCoordinatorFor starts building a Coordinator that shares the
// operator's locks, logging, metrics and lock timeout.
func NewManagedCoordinatorFor[T client.Object](o *Operator, kind string, store Store[T], handler Handler[T]) *CoordinatorBuilder[T] {
	return NewCoordinatorFor(kind, store, handler).
		WithLockManager(o.locks).
		WithLockTimeout(o.lockTimeout).
		WithLoggerFunc(o.loggerFunc).
		WithMetrics(o.metrics)
}

// Locks returns the lock manager shared by every managed coordinator.
func (o *Operator) Locks() *lock.Manager {
	return o.locks
}

// Register adds a reconciler whose resources are watched through transport.
// It must be called before Start.
func (o *Operator) Register(reconciler ManagedReconciler, transport watch.Transport) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return errors.New("cannot register a reconciler on a started operator")
	}
	if reconciler == nil || transport == nil {
		return errors.New("reconciler and transport are required")
	}
	for _, r := range o.registrations {
		if r.reconciler.Kind() == reconciler.Kind() {
			return errors.Errorf("a reconciler for kind %s is already registered", reconciler.Kind())
		}
	}

	o.registrations = append(o.registrations, registration{reconciler: reconciler, transport: transport})
	return nil
}

// Reconcile runs a manual reconciliation through the registered reconciler
// of kind. Paused resources are reconciled too.
func (o *Operator) Reconcile(ctx context.Context, kind, namespace, name string) Outcome {
	o.mu.Lock()
	var reconciler Reconciler
	for _, r := range o.registrations {
		if r.reconciler.Kind() == kind {
			reconciler = r.reconciler
		}
	}
	o.mu.Unlock()

	if reconciler == nil {
		return Failed(errors.Wrapf(ErrInvalidRequest, "no reconciler registered for kind %s", kind))
	}
	return reconciler.Reconcile(ctx, NewRequest(TriggerManual, kind, namespace, name))
}

// Start opens the watches, starts the resync loops and blocks until ctx is
// done. Watches are closed cleanly and in-flight reconciliations are waited
// for before it returns.
func (o *Operator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return errors.New("operator already started")
	}
	o.started = true
	registrations := append([]registration(nil), o.registrations...)
	o.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var managers []*watch.Manager
	var resyncs sync.WaitGroup

	stop := func() {
		cancel()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancelShutdown()
		for _, manager := range managers {
			if err := manager.StopAll(shutdownCtx); err != nil {
				o.logger.Error(err, "Failed to stop watches")
			}
		}

		resyncs.Wait()
		o.inflight.Wait()
	}

	for _, r := range registrations {
		kind := r.reconciler.Kind()
		logger := o.logger.WithValues("kind", kind)

		manager, err := watch.NewManagerFor(r.transport).
			WithSelector(r.reconciler.Selector()).
			WithEventHandler(o.dispatch(ctx, r.reconciler)).
			WithFilter(NotPausedFilter).
			WithLogger(logger).
			WithMetrics(o.metrics).
			WithRecreateDelay(o.recreateDelay).
			WithBackoff(o.backoff).
			Build()
		if err != nil {
			stop()
			return errors.Wrapf(err, "failed to build watch manager for kind %s", kind)
		}
		managers = append(managers, manager)

		for _, namespace := range o.namespaces {
			if _, err := manager.CreateWatch(ctx, namespace, manager.RecreateWatch(ctx, namespace)); err != nil {
				stop()
				return errors.Wrapf(err, "failed to start watch for kind %s", kind)
			}
		}

		if o.resyncInterval > 0 {
			resyncer := NewResyncer(r.reconciler, o.namespaces, o.resyncInterval, o.resyncConcurrency, logger)
			resyncs.Add(1)
			go func() {
				defer resyncs.Done()
				resyncer.Run(ctx)
			}()
		}

		logger.Info("Started reconciler", "namespaces", o.namespaces)
	}

	<-ctx.Done()
	o.logger.Info("Stopping operator")
	stop()
	return nil
}

// dispatch turns watch events into reconciliations. Each runs on its own
// goroutine so a slow handler never stalls the watch; the lock serializes
// reconciliations of the same identity. Reconciliations run on ctx, the
// operator context, so closing the watch that delivered an event leaves
// them running.
func (o *Operator) dispatch(ctx context.Context, reconciler Reconciler) watch.EventHandler {
	return func(_ context.Context, event watch.Event) {
		hub := sentry.CurrentHub().Clone()
		instrument.AddWatchEventBreadcrumb(hub, string(event.Type), event.Previous, event.Object)
		ctx := sentry.SetHubOnContext(ctx, hub)

		req := NewRequest(TriggerWatch, reconciler.Kind(), event.Namespace, event.Name)

		o.inflight.Add(1)
		go func() {
			defer o.inflight.Done()
			reconciler.Reconcile(ctx, req)
		}()
	}
}
