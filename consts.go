package opcore

import "github.com/u-ctf/operator-core/lock"

const (
	// LabelReconciliationPaused can be added to a resource to stop watch events
	// for it from triggering reconciliations. Periodic resyncs and explicit
	// calls to Reconcile are not affected.
	// You can set the value to anything, so you can use it to document who/what paused the reconciliation.
	LabelReconciliationPaused = "opcore.u-ctf.io/pause"

	// LockNamePrefix prefixes every lock name derived from a ResourceIdentity.
	LockNamePrefix = "lock::"

	// DefaultLockTimeout bounds how long a reconciliation waits for its lock.
	DefaultLockTimeout = lock.DefaultTimeout
)

// Operations reported in a HandlerError.
const (
	OpFetch          = "fetch"
	OpValidate       = "validate"
	OpCreateOrUpdate = "createOrUpdate"
	OpDelete         = "delete"
)
