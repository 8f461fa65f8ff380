package opcore

import (
	"reflect"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// NewInstanceOf returns a new, empty object of the same concrete type as object.
func NewInstanceOf[T client.Object](object T) T {
	var newObject T
	// Use reflection to create a new instance of the object type
	objectType := reflect.TypeOf(object)
	if objectType == nil {
		return newObject
	}

	if objectType.Kind() == reflect.Ptr {
		newObject = reflect.New(objectType.Elem()).Interface().(T)
	} else {
		newObject = reflect.New(objectType).Interface().(T)
	}
	return newObject
}

// IsPaused reports whether obj carries the LabelReconciliationPaused label.
func IsPaused(obj client.Object) bool {
	labels := obj.GetLabels()
	if labels == nil {
		return false
	}
	_, ok := labels[LabelReconciliationPaused]
	return ok
}
