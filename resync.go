package opcore

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/wait"
)

// ListManagedResourceNames returns the identities of the resources in
// namespace matching the coordinator's selector. An empty namespace lists
// every namespace.
func (c *Coordinator[T]) ListManagedResourceNames(ctx context.Context, namespace string) (sets.Set[types.NamespacedName], error) {
	resources, err := c.store.List(ctx, namespace, c.selector)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s resources", c.kind)
	}

	names := sets.New[types.NamespacedName]()
	for _, resource := range resources {
		names.Insert(types.NamespacedName{Namespace: resource.GetNamespace(), Name: resource.GetName()})
	}
	return names, nil
}

// DefaultResyncConcurrency bounds the reconciliations a resync runs at once.
const DefaultResyncConcurrency = 4

// Resyncer periodically re-queues every managed identity through its
// reconciler, so that drift is corrected even without watch events.
type Resyncer struct {
	reconciler  ManagedReconciler
	namespaces  []string
	interval    time.Duration
	concurrency int
	logger      logr.Logger
}

// NewResyncer resyncs namespaces every interval. A single empty namespace
// means every namespace.
func NewResyncer(reconciler ManagedReconciler, namespaces []string, interval time.Duration, concurrency int, logger logr.Logger) *Resyncer {
	if len(namespaces) == 0 {
		namespaces = []string{""}
	}
	if concurrency <= 0 {
		concurrency = DefaultResyncConcurrency
	}
	return &Resyncer{
		reconciler:  reconciler,
		namespaces:  namespaces,
		interval:    interval,
		concurrency: concurrency,
		logger:      logger.WithValues("kind", reconciler.Kind()),
	}
}

// Run resyncs until ctx is done. The first pass starts immediately.
func (r *Resyncer) Run(ctx context.Context) {
	wait.UntilWithContext(ctx, func(ctx context.Context) {
		if err := r.ResyncOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error(err, "Resync failed")
		}
	}, r.interval)
}

// ResyncOnce reconciles every identity found in the configured namespaces.
// Failed outcomes are logged by the reconciler and do not abort the pass;
// errors are listing failures or reconciliations abandoned because ctx ended.
func (r *Resyncer) ResyncOnce(ctx context.Context) error {
	startedAt := time.Now()

	names := sets.New[types.NamespacedName]()
	for _, namespace := range r.namespaces {
		found, err := r.reconciler.ListManagedResourceNames(ctx, namespace)
		if err != nil {
			return errors.Wrapf(err, "failed to list resources in namespace %q", namespace)
		}
		names = names.Union(found)
	}

	var group errgroup.Group
	group.SetLimit(r.concurrency)
	for _, name := range names.UnsortedList() {
		group.Go(func() error {
			outcome := r.reconciler.Reconcile(ctx, NewRequest(TriggerTimer, r.reconciler.Kind(), name.Namespace, name.Name))
			if outcome.IsCanceled() {
				return outcome.Err
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return errors.Wrap(err, "resync interrupted")
	}

	r.logger.V(1).Info("Resync done", "resources", names.Len(), "duration", time.Since(startedAt))
	return nil
}
