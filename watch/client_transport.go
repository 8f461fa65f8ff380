package watch

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	kwatch "k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ClientTransport opens watches with a controller-runtime client.
type ClientTransport struct {
	client client.WithWatch
	list   client.ObjectList
}

// NewClientTransport watches the kind of list, e.g. &corev1.ConfigMapList{}.
func NewClientTransport(c client.WithWatch, list client.ObjectList) *ClientTransport {
	return &ClientTransport{client: c, list: list}
}

func (t *ClientTransport) Watch(ctx context.Context, namespace string, selector labels.Selector, onEvent EventHandler, onClose CloseFunc) (Subscription, error) {
	var opts []client.ListOption
	if namespace != "" {
		opts = append(opts, client.InNamespace(namespace))
	}
	if selector != nil && !selector.Empty() {
		opts = append(opts, client.MatchingLabelsSelector{Selector: selector})
	}

	list, ok := t.list.DeepCopyObject().(client.ObjectList)
	if !ok {
		return nil, errors.Errorf("%T is not a list", t.list)
	}

	watcher, err := t.client.Watch(ctx, list, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open watch")
	}

	subscription := newSubscription(ctx, watcher)
	go subscription.pump(onEvent, onClose)
	return subscription, nil
}

type subscription struct {
	ctx      context.Context
	cancel   context.CancelFunc
	watcher  kwatch.Interface
	done     chan struct{}
	stopOnce sync.Once
}

func newSubscription(ctx context.Context, watcher kwatch.Interface) *subscription {
	ctx, cancel := context.WithCancel(ctx)
	return &subscription{
		ctx:     ctx,
		cancel:  cancel,
		watcher: watcher,
		done:    make(chan struct{}),
	}
}

func (s *subscription) Stop() {
	s.stopOnce.Do(s.cancel)
}

func (s *subscription) Done() <-chan struct{} {
	return s.done
}

func (s *subscription) pump(onEvent EventHandler, onClose CloseFunc) {
	defer close(s.done)
	defer s.cancel()
	defer s.watcher.Stop()

	onClose(s.run(onEvent))
}

func (s *subscription) run(onEvent EventHandler) error {
	last := make(map[types.NamespacedName]client.Object)

	for {
		select {
		case <-s.ctx.Done():
			return nil
		case raw, ok := <-s.watcher.ResultChan():
			if !ok {
				if s.ctx.Err() != nil {
					return nil
				}
				return ErrUnexpectedClose
			}

			switch raw.Type {
			case kwatch.Error:
				return errors.Wrap(apierrors.FromObject(raw.Object), "watch failed")
			case kwatch.Bookmark:
				continue
			}

			obj, ok := raw.Object.(client.Object)
			if !ok {
				continue
			}

			key := client.ObjectKeyFromObject(obj)
			event := Event{
				Type:      raw.Type,
				Namespace: key.Namespace,
				Name:      key.Name,
				Object:    obj,
				Previous:  last[key],
			}
			if raw.Type == kwatch.Deleted {
				delete(last, key)
			} else {
				last[key] = obj
			}

			onEvent(s.ctx, event)
		}
	}
}
