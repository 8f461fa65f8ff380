package opcore

import (
	"reflect"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ConditionReady is the condition type describing the last outcome.
const ConditionReady = "Ready"

// Condition reasons.
const (
	ReasonReconciled           = "Reconciled"
	ReasonInvalidResource      = "InvalidResource"
	ReasonLockTimeout          = "LockTimeout"
	ReasonReconciliationFailed = "ReconciliationFailed"
)

// OutcomeCondition describes outcome as a Ready condition, for status
// reporters running after a reconciliation.
func OutcomeCondition(outcome Outcome, generation int64) metav1.Condition {
	condition := metav1.Condition{
		Type:               ConditionReady,
		LastTransitionTime: metav1.Now(),
		ObservedGeneration: generation,
	}

	switch {
	case outcome.Succeeded():
		condition.Status = metav1.ConditionTrue
		condition.Reason = ReasonReconciled
		condition.Message = "The resource is ready"
	case outcome.IsInvalidResource():
		condition.Status = metav1.ConditionFalse
		condition.Reason = ReasonInvalidResource
		condition.Message = outcome.Err.Error()
	case outcome.IsLockTimeout():
		condition.Status = metav1.ConditionUnknown
		condition.Reason = ReasonLockTimeout
		condition.Message = "Another reconciliation is in progress"
	default:
		condition.Status = metav1.ConditionFalse
		condition.Reason = ReasonReconciliationFailed
		condition.Message = outcome.Err.Error()
	}

	return condition
}

// SetOutcomeCondition sets the Ready condition of obj from outcome and
// reports whether it changed. Deletion outcomes leave obj untouched.
//
// It uses reflection and assumes the resource has a standard status field
// with conditions:
//
//	type MyCustomResourceStatus struct {
//	    Conditions []metav1.Condition `json:"conditions,omitempty"`
//	    ...
//	}
//
// Resources without such a field are left untouched.
func SetOutcomeCondition[T client.Object](obj T, outcome Outcome) bool {
	if outcome.Kind == OutcomeDeletedByOperator || outcome.Kind == OutcomeDeletedByGarbageCollection {
		return false
	}

	objValue := reflect.ValueOf(obj)
	if objValue.Kind() == reflect.Ptr {
		if objValue.IsNil() {
			return false
		}
		objValue = objValue.Elem()
	}
	if objValue.Kind() != reflect.Struct {
		return false
	}

	statusField := objValue.FieldByName("Status")
	if !statusField.IsValid() || statusField.Kind() != reflect.Struct {
		return false
	}

	conditionsField := statusField.FieldByName("Conditions")
	if !conditionsField.IsValid() || !conditionsField.CanSet() {
		return false
	}

	conditions, ok := conditionsField.Interface().([]metav1.Condition)
	if !ok {
		return false
	}

	if !meta.SetStatusCondition(&conditions, OutcomeCondition(outcome, obj.GetGeneration())) {
		return false
	}

	conditionsField.Set(reflect.ValueOf(conditions))
	return true
}
