package opcore

import (
	kwatch "k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"

	"github.com/u-ctf/operator-core/watch"
)

// NotPausedPredicate is a predicate that filters out paused resources from reconciliation.
// Resources with the opcore.u-ctf.io/pause label will not trigger reconciliation events.
type NotPausedPredicate = TypedNotPausedPredicate[client.Object]

// TypedNotPausedPredicate filters controller-runtime events for resources
// marked as paused. Delete events always pass so that cleanup still happens.
type TypedNotPausedPredicate[object client.Object] struct{}

func (p TypedNotPausedPredicate[object]) Create(e event.TypedCreateEvent[object]) bool {
	return !IsPaused(e.Object)
}

func (p TypedNotPausedPredicate[object]) Delete(e event.TypedDeleteEvent[object]) bool {
	return true
}

func (p TypedNotPausedPredicate[object]) Update(e event.TypedUpdateEvent[object]) bool {
	return !IsPaused(e.ObjectNew)
}

func (p TypedNotPausedPredicate[object]) Generic(e event.TypedGenericEvent[object]) bool {
	return !IsPaused(e.Object)
}

// NotPausedFilter drops watch events of paused resources. Deletions always
// pass.
func NotPausedFilter(event watch.Event) bool {
	if event.Type == kwatch.Deleted || event.Object == nil {
		return true
	}
	return !IsPaused(event.Object)
}
