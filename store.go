package opcore

import (
	"context"

	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Store gives read access to the resources of one kind. It is the source of
// truth: no caching or transactional semantics are assumed.
type Store[T client.Object] interface {
	// Get returns the resource and true, or false when it does not exist.
	Get(ctx context.Context, namespace, name string) (T, bool, error)
	// List returns the resources in namespace matching selector. An empty
	// namespace lists every namespace, a nil selector matches everything.
	List(ctx context.Context, namespace string, selector labels.Selector) ([]T, error)
}

// ClientStore is a Store backed by a controller-runtime client.Reader.
type ClientStore[T client.Object] struct {
	reader client.Reader
	object T
	list   client.ObjectList
}

var _ Store[client.Object] = &ClientStore[client.Object]{}

// NewClientStore returns a store reading objects shaped like object, listing
// them through list. Both are only used as prototypes and are never mutated.
func NewClientStore[T client.Object](reader client.Reader, object T, list client.ObjectList) *ClientStore[T] {
	return &ClientStore[T]{
		reader: reader,
		object: object,
		list:   list,
	}
}

func (s *ClientStore[T]) newObject() T {
	// Unstructured prototypes carry their GVK, which an empty instance would lose.
	if _, ok := any(s.object).(*unstructured.Unstructured); ok {
		return s.object.DeepCopyObject().(T)
	}
	return NewInstanceOf(s.object)
}

func (s *ClientStore[T]) Get(ctx context.Context, namespace, name string) (T, bool, error) {
	var zero T

	obj := s.newObject()
	err := s.reader.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, obj)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return zero, false, nil
		}
		return zero, false, errors.Wrapf(err, "failed to get %s/%s", namespace, name)
	}

	return obj, true, nil
}

func (s *ClientStore[T]) List(ctx context.Context, namespace string, selector labels.Selector) ([]T, error) {
	list := s.list.DeepCopyObject().(client.ObjectList)

	opts := []client.ListOption{client.InNamespace(namespace)}
	if selector != nil {
		opts = append(opts, client.MatchingLabelsSelector{Selector: selector})
	}

	if err := s.reader.List(ctx, list, opts...); err != nil {
		return nil, errors.Wrapf(err, "failed to list namespace %q", namespace)
	}

	items, err := meta.ExtractList(list)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract list items")
	}

	result := make([]T, 0, len(items))
	for _, item := range items {
		typed, ok := item.(T)
		if !ok {
			return nil, errors.Errorf("unexpected list item type %T", item)
		}
		result = append(result, typed)
	}

	return result, nil
}
