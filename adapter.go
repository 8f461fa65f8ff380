package opcore

import (
	"context"
	"strings"
	"time"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// DefaultLockTimeoutRequeue is how long the adapter waits before retrying a
// request that could not get its lock.
const DefaultLockTimeoutRequeue = 5 * time.Second

// ReconcilerAdapter lets a controller-runtime workqueue drive a Reconciler.
type ReconcilerAdapter struct {
	reconciler         Reconciler
	lockTimeoutRequeue time.Duration
}

var _ reconcile.Reconciler = &ReconcilerAdapter{}

func NewReconcilerAdapter(reconciler Reconciler) *ReconcilerAdapter {
	return &ReconcilerAdapter{
		reconciler:         reconciler,
		lockTimeoutRequeue: DefaultLockTimeoutRequeue,
	}
}

// WithLockTimeoutRequeue changes the delay used after a lock timeout.
func (a *ReconcilerAdapter) WithLockTimeoutRequeue(after time.Duration) *ReconcilerAdapter {
	a.lockTimeoutRequeue = after
	return a
}

// Reconcile maps outcomes to workqueue results: lock timeouts are retried
// later, invalid resources wait for the next change, failures are returned
// so the workqueue backs off.
func (a *ReconcilerAdapter) Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error) {
	outcome := a.reconciler.Reconcile(ctx, NewRequest(TriggerController, a.reconciler.Kind(), req.Namespace, req.Name))

	switch {
	case outcome.Succeeded():
		return reconcile.Result{}, nil
	case outcome.IsLockTimeout():
		return reconcile.Result{RequeueAfter: a.lockTimeoutRequeue}, nil
	case outcome.IsInvalidResource(), outcome.IsCanceled():
		return reconcile.Result{}, nil
	}
	return reconcile.Result{}, outcome.Err
}

// SetupWithManager registers the adapter as a controller for object, which
// must be of the reconciler's kind. Paused resources are filtered out.
func (a *ReconcilerAdapter) SetupWithManager(mgr ctrl.Manager, object client.Object) error {
	return ctrl.NewControllerManagedBy(mgr).
		Named(strings.ToLower(a.reconciler.Kind())).
		For(object, builder.WithPredicates(NotPausedPredicate{})).
		Complete(a)
}
