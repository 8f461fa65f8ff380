package opcore

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/types"
)

// Triggers recorded in a request's TriggerID.
const (
	TriggerWatch      = "watch"
	TriggerTimer      = "timer"
	TriggerController = "controller"
	TriggerManual     = "manual"
)

// ErrInvalidRequest is returned for requests missing a kind, namespace or name.
var ErrInvalidRequest = errors.New("invalid reconciliation request")

// ResourceIdentity is the (namespace, kind, name) triple a lock is derived from.
type ResourceIdentity struct {
	Namespace string
	Kind      string
	Name      string
}

// LockName returns the name of the lock guarding reconciliations of this identity.
func (i ResourceIdentity) LockName() string {
	return LockNamePrefix + i.Namespace + "::" + i.Kind + "::" + i.Name
}

func (i ResourceIdentity) String() string {
	return i.Kind + "(" + i.Namespace + "/" + i.Name + ")"
}

// Request identifies one reconciliation attempt. It is a value type and is
// never persisted; TriggerID only serves log correlation.
type Request struct {
	Kind      string
	Namespace string
	Name      string
	TriggerID string
}

// NewRequest builds a request whose TriggerID starts with trigger and ends
// with a random suffix.
func NewRequest(trigger, kind, namespace, name string) Request {
	return Request{
		Kind:      kind,
		Namespace: namespace,
		Name:      name,
		TriggerID: trigger + "-" + uuid.NewString()[:8],
	}
}

func (r Request) Identity() ResourceIdentity {
	return ResourceIdentity{
		Namespace: r.Namespace,
		Kind:      r.Kind,
		Name:      r.Name,
	}
}

func (r Request) NamespacedName() types.NamespacedName {
	return types.NamespacedName{Namespace: r.Namespace, Name: r.Name}
}

func (r Request) String() string {
	return fmt.Sprintf("Reconciliation #%s %s", r.TriggerID, r.Identity())
}

func (r Request) validate() error {
	switch {
	case r.Kind == "":
		return errors.Wrap(ErrInvalidRequest, "kind is empty")
	case r.Namespace == "":
		return errors.Wrap(ErrInvalidRequest, "namespace is empty")
	case r.Name == "":
		return errors.Wrap(ErrInvalidRequest, "name is empty")
	}
	return nil
}
