package opcore

import (
	"github.com/go-logr/logr"

	"github.com/u-ctf/operator-core/instrument"
)

// report logs outcome. Lock timeouts and invalid resources are warnings:
// they are expected in normal operation and must not page anyone.
func (c *Coordinator[T]) report(logger logr.Logger, req Request, outcome Outcome) {
	switch {
	case outcome.Kind == OutcomeReconciled:
		logger.Info("Reconciliation succeeded", "request", req.String())
	case outcome.Kind == OutcomeDeletedByOperator:
		logger.Info("Resource deleted by the operator", "request", req.String(), "resource", req.Identity().String())
	case outcome.Kind == OutcomeDeletedByGarbageCollection:
		logger.Info("Resource deleted, dependents will be removed by Kubernetes garbage collection", "request", req.String())
	case outcome.IsInvalidResource():
		instrument.Warn(logger, "Resource is invalid, not reconciling it", "request", req.String(), "reason", outcome.Err.Error())
	case outcome.IsLockTimeout():
		instrument.Warn(logger, "Failed to acquire lock, another reconciliation is probably still running", "request", req.String(), "reason", outcome.Err.Error())
	case outcome.IsCanceled():
		instrument.Warn(logger, "Reconciliation abandoned before it started", "request", req.String(), "reason", outcome.Err.Error())
	default:
		logger.Error(outcome.Err, "Reconciliation failed", "request", req.String())
	}
}
