package opcore

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/u-ctf/operator-core/lock"
)

type OutcomeKind int

const (
	OutcomeReconciled OutcomeKind = iota
	OutcomeDeletedByOperator
	OutcomeDeletedByGarbageCollection
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReconciled:
		return "Reconciled"
	case OutcomeDeletedByOperator:
		return "DeletedByOperator"
	case OutcomeDeletedByGarbageCollection:
		return "DeletedByGarbageCollection"
	case OutcomeFailed:
		return "Failed"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the result of one reconciliation attempt. Err is only set when
// Kind is OutcomeFailed.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

func Reconciled() Outcome {
	return Outcome{Kind: OutcomeReconciled}
}

func DeletedByOperator() Outcome {
	return Outcome{Kind: OutcomeDeletedByOperator}
}

func DeletedByGarbageCollection() Outcome {
	return Outcome{Kind: OutcomeDeletedByGarbageCollection}
}

func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

func (o Outcome) Succeeded() bool {
	return o.Kind != OutcomeFailed
}

// IsLockTimeout reports whether the lock could not be acquired in time.
func (o Outcome) IsLockTimeout() bool {
	return o.Kind == OutcomeFailed && errors.Is(o.Err, lock.ErrTimeout)
}

// IsInvalidResource reports whether the validation gate rejected the resource.
func (o Outcome) IsInvalidResource() bool {
	var invalid *InvalidResourceError
	return o.Kind == OutcomeFailed && errors.As(o.Err, &invalid)
}

// IsHandlerError reports whether the injected handler failed or panicked.
func (o Outcome) IsHandlerError() bool {
	var handlerErr *HandlerError
	return o.Kind == OutcomeFailed && errors.As(o.Err, &handlerErr)
}

// IsCanceled reports whether the caller's context ended before the lock was
// acquired. A handler failing with a context error is a handler error, not a
// cancellation.
func (o Outcome) IsCanceled() bool {
	if o.Kind != OutcomeFailed || o.IsHandlerError() {
		return false
	}
	return errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded)
}

// Reason is a short, stable label for the outcome, suitable for metrics.
func (o Outcome) Reason() string {
	switch {
	case o.Kind == OutcomeReconciled:
		return "reconciled"
	case o.Kind == OutcomeDeletedByOperator:
		return "deleted_by_operator"
	case o.Kind == OutcomeDeletedByGarbageCollection:
		return "deleted_by_gc"
	case o.IsLockTimeout():
		return "lock_timeout"
	case o.IsInvalidResource():
		return "invalid_resource"
	case o.IsHandlerError():
		return "handler_error"
	case o.IsCanceled():
		return "canceled"
	case errors.Is(o.Err, ErrInvalidRequest):
		return "invalid_request"
	}
	return "error"
}

func (o Outcome) String() string {
	if o.Err != nil {
		return o.Kind.String() + "(" + o.Err.Error() + ")"
	}
	return o.Kind.String()
}

// InvalidResourceError is produced when the validation gate refuses a resource.
type InvalidResourceError struct {
	Reason string
}

func (e *InvalidResourceError) Error() string {
	return "invalid resource: " + e.Reason
}

// HandlerError wraps a failure of the injected create/update or delete logic.
// Faults raised while fetching or validating are reported the same way with
// the matching Op.
type HandlerError struct {
	Op  string
	Err error
}

func (e *HandlerError) Error() string {
	return e.Op + " failed: " + e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause from github.com/pkg/errors see through the wrapper.
func (e *HandlerError) Cause() error {
	return e.Err
}
