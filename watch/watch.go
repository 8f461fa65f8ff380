// Package watch keeps change-notification subscriptions alive for the
// namespaces an operator manages.
package watch

import (
	"context"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/labels"
	kwatch "k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ErrUnexpectedClose is passed to a CloseFunc when the server ended the
// stream without being asked to.
var ErrUnexpectedClose = errors.New("watch closed unexpectedly")

// Event is a single change delivered by a subscription.
type Event struct {
	Type      kwatch.EventType
	Namespace string
	Name      string
	// Object is the state carried by the event. For Deleted events it is the
	// last known state.
	Object client.Object
	// Previous is the last object seen for the same identity on this
	// subscription, nil if none.
	Previous client.Object
}

// EventHandler receives events from a subscription. It runs on the
// subscription's goroutine and should hand off long work.
type EventHandler func(ctx context.Context, event Event)

// CloseFunc is invoked exactly once per subscription. A nil error means the
// subscription was stopped on purpose.
type CloseFunc func(err error)

// Subscription is a running watch.
type Subscription interface {
	// Stop asks the subscription to end. It does not wait.
	Stop()
	// Done is closed once the CloseFunc has returned.
	Done() <-chan struct{}
}

// Transport opens subscriptions against the API server.
type Transport interface {
	Watch(ctx context.Context, namespace string, selector labels.Selector, onEvent EventHandler, onClose CloseFunc) (Subscription, error)
}

// Filter reports whether an event should be delivered.
type Filter func(event Event) bool

func filtered(handler EventHandler, filters []Filter) EventHandler {
	if len(filters) == 0 {
		return handler
	}
	return func(ctx context.Context, event Event) {
		for _, filter := range filters {
			if !filter(event) {
				return
			}
		}
		handler(ctx, event)
	}
}
