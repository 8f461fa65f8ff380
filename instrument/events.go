package instrument

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/wI2L/jsondiff"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// AddWatchEventBreadcrumb records a watch event on hub. When the previous
// version of the object is known, the breadcrumb carries the JSON patch
// between both versions.
func AddWatchEventBreadcrumb(hub *sentry.Hub, eventType string, previous, current client.Object) {
	if hub == nil || current == nil {
		return
	}

	data := map[string]any{
		"event":  eventType,
		"object": objectSummary(current),
	}

	if previous != nil {
		data["object_old"] = objectSummary(previous)

		patch, err := jsondiff.Compare(previous, current,
			jsondiff.Ignores("/metadata/managedFields", "/metadata/resourceVersion", "/kind", "/apiVersion"),
		)
		if err == nil {
			data["patch"] = patch.String()
		}
	}

	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "watch.event",
		Message:  fmt.Sprintf("Received %s event", eventType),
		Level:    sentry.LevelInfo,
		Data:     data,
	}, nil)
}

func objectSummary(obj client.Object) map[string]any {
	return map[string]any{
		"type":            fmt.Sprintf("%T", obj),
		"gvk":             obj.GetObjectKind().GroupVersionKind().String(),
		"name":            obj.GetName(),
		"namespace":       obj.GetNamespace(),
		"generation":      obj.GetGeneration(),
		"resourceVersion": obj.GetResourceVersion(),
	}
}
