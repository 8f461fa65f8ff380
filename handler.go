package opcore

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Handler holds the kind-specific reconciliation logic driven by a Coordinator.
// Both methods are only ever called with the resource lock held.
type Handler[T client.Object] interface {
	// CreateOrUpdate converges the cluster towards resource. It is called when
	// the resource exists; that does not imply anything changed since the last call.
	CreateOrUpdate(ctx context.Context, req Request, resource T) error

	// Delete cleans up after a resource that no longer exists. It returns true
	// when the handler deleted the dependent state itself, and false when it
	// relies on owner-reference garbage collection.
	Delete(ctx context.Context, req Request) (bool, error)
}

// HandlerFuncs adapts plain functions to a Handler. A nil DeleteFunc leaves
// cleanup to garbage collection, a nil CreateOrUpdateFunc does nothing.
type HandlerFuncs[T client.Object] struct {
	CreateOrUpdateFunc func(ctx context.Context, req Request, resource T) error
	DeleteFunc         func(ctx context.Context, req Request) (bool, error)
}

var _ Handler[client.Object] = HandlerFuncs[client.Object]{}

func (h HandlerFuncs[T]) CreateOrUpdate(ctx context.Context, req Request, resource T) error {
	if h.CreateOrUpdateFunc == nil {
		return nil
	}
	return h.CreateOrUpdateFunc(ctx, req, resource)
}

func (h HandlerFuncs[T]) Delete(ctx context.Context, req Request) (bool, error) {
	if h.DeleteFunc == nil {
		return false, nil
	}
	return h.DeleteFunc(ctx, req)
}
