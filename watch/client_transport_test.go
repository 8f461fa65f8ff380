package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	kwatch "k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

type watchingClient struct {
	client.WithWatch

	watcher *kwatch.FakeWatcher
	err     error
	list    client.ObjectList
	opts    *client.ListOptions
}

func (c *watchingClient) Watch(ctx context.Context, list client.ObjectList, opts ...client.ListOption) (kwatch.Interface, error) {
	c.list = list
	c.opts = &client.ListOptions{}
	c.opts.ApplyOptions(opts)
	if c.err != nil {
		return nil, c.err
	}
	return c.watcher, nil
}

func configMap(name, data string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Namespace: "a", Name: name},
		Data:       map[string]string{"key": data},
	}
}

func waitClosed(t *testing.T, closed <-chan error) error {
	t.Helper()
	select {
	case err := <-closed:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("subscription did not close")
		return nil
	}
}

func TestClientTransport_AppliesNamespaceAndSelector(t *testing.T) {
	c := &watchingClient{watcher: kwatch.NewFake()}
	transport := NewClientTransport(c, &corev1.ConfigMapList{})

	selector := labels.SelectorFromSet(labels.Set{"app": "db"})
	closed := make(chan error, 1)
	sub, err := transport.Watch(context.Background(), "a", selector, func(context.Context, Event) {}, func(err error) { closed <- err })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sub.Stop()

	if c.opts.Namespace != "a" {
		t.Errorf("expected namespace a, got %q", c.opts.Namespace)
	}
	if c.opts.LabelSelector == nil || c.opts.LabelSelector.String() != "app=db" {
		t.Errorf("expected selector app=db, got %v", c.opts.LabelSelector)
	}
	if _, ok := c.list.(*corev1.ConfigMapList); !ok {
		t.Errorf("expected a ConfigMapList, got %T", c.list)
	}
}

func TestClientTransport_AllNamespaces(t *testing.T) {
	c := &watchingClient{watcher: kwatch.NewFake()}
	transport := NewClientTransport(c, &corev1.ConfigMapList{})

	sub, err := transport.Watch(context.Background(), "", nil, func(context.Context, Event) {}, func(error) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sub.Stop()

	if c.opts.Namespace != "" {
		t.Errorf("expected no namespace, got %q", c.opts.Namespace)
	}
	if c.opts.LabelSelector != nil {
		t.Errorf("expected no selector, got %v", c.opts.LabelSelector)
	}
}

func TestClientTransport_WatchError(t *testing.T) {
	c := &watchingClient{err: errors.New("connection refused")}
	transport := NewClientTransport(c, &corev1.ConfigMapList{})

	called := false
	_, err := transport.Watch(context.Background(), "a", nil, func(context.Context, Event) {}, func(error) { called = true })
	if err == nil {
		t.Fatalf("expected an error")
	}
	if called {
		t.Errorf("onClose must not be called when the watch never opened")
	}
}

func TestClientTransport_DeliversEventsWithPrevious(t *testing.T) {
	fake := kwatch.NewFake()
	transport := NewClientTransport(&watchingClient{watcher: fake}, &corev1.ConfigMapList{})

	events := make(chan Event, 3)
	closed := make(chan error, 1)
	sub, err := transport.Watch(context.Background(), "a", nil,
		func(_ context.Context, e Event) { events <- e },
		func(err error) { closed <- err },
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := configMap("x", "1")
	second := configMap("x", "2")
	fake.Add(first)
	fake.Modify(second)
	fake.Delete(second)

	added := <-events
	if added.Type != kwatch.Added || added.Namespace != "a" || added.Name != "x" {
		t.Errorf("unexpected added event: %+v", added)
	}
	if added.Previous != nil {
		t.Errorf("expected no previous object on first event")
	}

	modified := <-events
	if modified.Type != kwatch.Modified || modified.Previous != first {
		t.Errorf("expected modified event to carry the first object as previous")
	}

	deleted := <-events
	if deleted.Type != kwatch.Deleted || deleted.Previous != second {
		t.Errorf("expected deleted event to carry the second object as previous")
	}

	sub.Stop()
	if err := waitClosed(t, closed); err != nil {
		t.Errorf("expected clean close, got %v", err)
	}
	<-sub.Done()
}

func TestClientTransport_SkipsBookmarks(t *testing.T) {
	fake := kwatch.NewFake()
	transport := NewClientTransport(&watchingClient{watcher: fake}, &corev1.ConfigMapList{})

	events := make(chan Event, 2)
	sub, err := transport.Watch(context.Background(), "a", nil, func(_ context.Context, e Event) { events <- e }, func(error) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sub.Stop()

	fake.Action(kwatch.Bookmark, configMap("x", "1"))
	fake.Add(configMap("y", "1"))

	if e := <-events; e.Name != "y" {
		t.Errorf("expected bookmark to be skipped, got event for %q", e.Name)
	}
}

func TestClientTransport_UnexpectedClose(t *testing.T) {
	fake := kwatch.NewFake()
	transport := NewClientTransport(&watchingClient{watcher: fake}, &corev1.ConfigMapList{})

	closed := make(chan error, 1)
	sub, err := transport.Watch(context.Background(), "a", nil, func(context.Context, Event) {}, func(err error) { closed <- err })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fake.Stop()

	if err := waitClosed(t, closed); !errors.Is(err, ErrUnexpectedClose) {
		t.Errorf("expected ErrUnexpectedClose, got %v", err)
	}
	<-sub.Done()
}

func TestClientTransport_ErrorEvent(t *testing.T) {
	fake := kwatch.NewFake()
	transport := NewClientTransport(&watchingClient{watcher: fake}, &corev1.ConfigMapList{})

	closed := make(chan error, 1)
	_, err := transport.Watch(context.Background(), "a", nil, func(context.Context, Event) {}, func(err error) { closed <- err })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fake.Error(&metav1.Status{
		Status: metav1.StatusFailure,
		Code:   410,
		Reason: metav1.StatusReasonExpired,
	})

	if err := waitClosed(t, closed); !apierrors.IsResourceExpired(err) {
		t.Errorf("expected an expired error, got %v", err)
	}
}

func TestClientTransport_ContextCancelIsClean(t *testing.T) {
	transport := NewClientTransport(&watchingClient{watcher: kwatch.NewFake()}, &corev1.ConfigMapList{})

	ctx, cancel := context.WithCancel(context.Background())
	closed := make(chan error, 1)
	closes := 0
	_, err := transport.Watch(ctx, "a", nil, func(context.Context, Event) {}, func(err error) {
		closes++
		closed <- err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancel()

	if err := waitClosed(t, closed); err != nil {
		t.Errorf("expected clean close, got %v", err)
	}
	if closes != 1 {
		t.Errorf("expected onClose to be called once, got %d", closes)
	}
}
