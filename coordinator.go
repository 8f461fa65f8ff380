package opcore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/apimachinery/pkg/labels"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/u-ctf/operator-core/instrument"
	"github.com/u-ctf/operator-core/lock"
)

// Coordinator serializes reconciliations of one resource kind per identity
// and routes each of them to the injected Handler.
type Coordinator[T client.Object] struct {
	kind        string
	store       Store[T]
	handler     Handler[T]
	validator   Validator[T]
	locks       *lock.Manager
	lockTimeout time.Duration
	selector    labels.Selector
	loggerFunc  func(ctx context.Context) logr.Logger
	tracer      instrument.Tracer
	metrics     *instrument.Metrics
}

var _ ManagedReconciler = &Coordinator[client.Object]{}

type CoordinatorBuilder[T client.Object] struct {
	coordinator *Coordinator[T]
}

// NewCoordinatorFor starts building a Coordinator for kind, reading
// resources from store and dispatching to handler.
func NewCoordinatorFor[T client.Object](kind string, store Store[T], handler Handler[T]) *CoordinatorBuilder[T] {
	return &CoordinatorBuilder[T]{
		coordinator: &Coordinator[T]{
			kind:        kind,
			store:       store,
			handler:     handler,
			validator:   AlwaysValid[T](),
			lockTimeout: DefaultLockTimeout,
			loggerFunc:  instrument.NewLoggerFunc(logr.Discard()),
			tracer:      &instrument.NilTracer{},
		},
	}
}

// WithLockManager shares locks with other coordinators. Without it the
// coordinator owns a private manager.
func (b *CoordinatorBuilder[T]) WithLockManager(locks *lock.Manager) *CoordinatorBuilder[T] {
	b.coordinator.locks = locks
	return b
}

func (b *CoordinatorBuilder[T]) WithLockTimeout(timeout time.Duration) *CoordinatorBuilder[T] {
	b.coordinator.lockTimeout = timeout
	return b
}

func (b *CoordinatorBuilder[T]) WithValidator(validator Validator[T]) *CoordinatorBuilder[T] {
	b.coordinator.validator = validator
	return b
}

// WithSelector restricts the resources listed for resync and watched by the
// operator runtime.
func (b *CoordinatorBuilder[T]) WithSelector(selector labels.Selector) *CoordinatorBuilder[T] {
	b.coordinator.selector = selector
	return b
}

func (b *CoordinatorBuilder[T]) WithLogger(logger logr.Logger) *CoordinatorBuilder[T] {
	b.coordinator.loggerFunc = instrument.NewLoggerFunc(logger)
	return b
}

// WithLoggerFunc derives the logger of every reconciliation from its
// context, see instrument.NewSentryLoggerFunc.
func (b *CoordinatorBuilder[T]) WithLoggerFunc(loggerFunc func(ctx context.Context) logr.Logger) *CoordinatorBuilder[T] {
	b.coordinator.loggerFunc = loggerFunc
	return b
}

func (b *CoordinatorBuilder[T]) WithTracer(tracer instrument.Tracer) *CoordinatorBuilder[T] {
	b.coordinator.tracer = tracer
	return b
}

func (b *CoordinatorBuilder[T]) WithMetrics(metrics *instrument.Metrics) *CoordinatorBuilder[T] {
	b.coordinator.metrics = metrics
	return b
}

func (b *CoordinatorBuilder[T]) Build() (*Coordinator[T], error) {
	c := b.coordinator
	switch {
	case c.kind == "":
		return nil, errors.New("coordinator needs a kind")
	case c.store == nil:
		return nil, errors.New("coordinator needs a store")
	case c.handler == nil:
		return nil, errors.New("coordinator needs a handler")
	case c.validator == nil:
		return nil, errors.New("coordinator needs a validator")
	}
	if c.locks == nil {
		c.locks = lock.NewManager()
	}
	if c.lockTimeout <= 0 {
		c.lockTimeout = DefaultLockTimeout
	}
	if c.tracer == nil {
		c.tracer = &instrument.NilTracer{}
	}
	return c, nil
}

func (c *Coordinator[T]) Kind() string {
	return c.kind
}

func (c *Coordinator[T]) Selector() labels.Selector {
	return c.selector
}

// Locks returns the lock manager guarding this coordinator's identities.
func (c *Coordinator[T]) Locks() *lock.Manager {
	return c.locks
}

// Reconcile runs one reconciliation of the resource named by req. Every
// failure is reported through the returned Outcome, never by panicking.
func (c *Coordinator[T]) Reconcile(ctx context.Context, req Request) Outcome {
	startedAt := time.Now()
	logger := c.loggerFunc(ctx).WithValues(
		"kind", req.Kind,
		"namespace", req.Namespace,
		"name", req.Name,
		"trigger", req.TriggerID,
	)

	if err := c.validateRequest(req); err != nil {
		outcome := Failed(err)
		c.report(logger, req, outcome)
		return outcome
	}

	ctx, span := c.tracer.StartSpan(ctx, fmt.Sprintf("Reconcile %s", req.Kind),
		trace.WithAttributes(
			attribute.String("opcore.kind", req.Kind),
			attribute.String("opcore.namespace", req.Namespace),
			attribute.String("opcore.name", req.Name),
			attribute.String("opcore.trigger", req.TriggerID),
		),
	)
	defer span.End()

	// Handlers find the reconciliation logger with logr.FromContextOrDiscard.
	ctx = logr.NewContext(ctx, logger)

	lockName := req.Identity().LockName()
	waitStartedAt := time.Now()

	outcome, err := lock.WithLock(ctx, c.locks, lockName, c.lockTimeout, func(ctx context.Context) (Outcome, error) {
		c.metrics.RecordLockWait(req.Kind, time.Since(waitStartedAt), true)
		logger.V(1).Info("Lock acquired", "lock", lockName, "waited", time.Since(waitStartedAt))
		return c.guarded(ctx, logger, req), nil
	})
	if err != nil {
		c.metrics.RecordLockWait(req.Kind, time.Since(waitStartedAt), false)
		outcome = Failed(err)
	} else {
		logger.V(1).Info("Lock released", "lock", lockName)
	}

	span.SetAttributes(attribute.String("opcore.outcome", outcome.Reason()))
	if outcome.Succeeded() {
		span.SetStatus(codes.Ok, outcome.Reason())
	} else {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	}

	c.report(logger, req, outcome)
	c.metrics.RecordReconcile(req.Kind, outcome.Reason(), time.Since(startedAt))
	return outcome
}

func (c *Coordinator[T]) validateRequest(req Request) error {
	if err := req.validate(); err != nil {
		return err
	}
	if req.Kind != c.kind {
		return errors.Wrapf(ErrInvalidRequest, "request for kind %s sent to the %s coordinator", req.Kind, c.kind)
	}
	return nil
}

// guarded runs with the lock held. A panic anywhere below is converted into
// a HandlerError for the operation that was running.
func (c *Coordinator[T]) guarded(ctx context.Context, logger logr.Logger, req Request) (outcome Outcome) {
	op := OpFetch
	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(&HandlerError{Op: op, Err: errors.Errorf("panic: %v", r)})
		}
	}()

	resource, found, err := c.store.Get(ctx, req.Namespace, req.Name)
	if err != nil {
		return Failed(&HandlerError{Op: OpFetch, Err: errors.Wrap(err, "failed to fetch resource")})
	}

	if !found {
		op = OpDelete
		logger.Info("Resource should be deleted")

		deletedByOperator, err := c.handler.Delete(ctx, req)
		if err != nil {
			return Failed(&HandlerError{Op: OpDelete, Err: err})
		}
		if deletedByOperator {
			return DeletedByOperator()
		}
		return DeletedByGarbageCollection()
	}

	op = OpValidate
	result := c.validator.Validate(resource)
	for _, warning := range result.Warnings {
		instrument.Warn(logger, warning)
	}
	if !result.IsValid() {
		return Failed(&InvalidResourceError{Reason: result.Reason})
	}

	op = OpCreateOrUpdate
	logger.Info("Resource should be created or updated")

	if err := c.handler.CreateOrUpdate(ctx, req, resource); err != nil {
		return Failed(&HandlerError{Op: OpCreateOrUpdate, Err: err})
	}
	return Reconciled()
}
