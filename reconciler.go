package opcore

import (
	"context"

	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Reconciler is the kind-agnostic face of a Coordinator, so that one
// runtime can drive coordinators of several kinds.
type Reconciler interface {
	Kind() string
	Reconcile(ctx context.Context, req Request) Outcome
}

// ManagedResourceLister discovers the identities that currently exist.
type ManagedResourceLister interface {
	ListManagedResourceNames(ctx context.Context, namespace string) (sets.Set[types.NamespacedName], error)
}

// ManagedReconciler is what the Operator runtime and the Resyncer need.
type ManagedReconciler interface {
	Reconciler
	ManagedResourceLister

	// Selector narrows watches and listings, nil meaning everything.
	Selector() labels.Selector
}
