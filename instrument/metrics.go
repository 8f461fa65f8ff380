package instrument

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const metricsNamespace = "opcore"

// Metric label names.
const (
	labelKind      = "kind"
	labelOutcome   = "outcome"
	labelAcquired  = "acquired"
	labelNamespace = "namespace"
	labelResult    = "result"
)

// Watch result label values.
const (
	WatchResultClean   = "clean"
	WatchResultError   = "error"
	WatchResultSuccess = "success"
	WatchResultFailure = "failure"
)

// Metrics are the prometheus collectors of the reconciliation core. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	reconcileTotal    *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec
	lockWait          *prometheus.HistogramVec
	watchClosed       *prometheus.CounterVec
	watchRecreated    *prometheus.CounterVec
}

var (
	defaultMetrics     *Metrics
	defaultMetricsErr  error
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns metrics registered on the controller-runtime
// registry, which is served by the manager's metrics endpoint.
func DefaultMetrics() (*Metrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = NewMetrics(ctrlmetrics.Registry)
	})
	return defaultMetrics, defaultMetricsErr
}

// NewMetrics creates the collectors and registers them on reg. Collectors
// already registered on reg are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reconcileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reconcile_total",
				Help:      "Total number of reconciliations by kind and outcome",
			},
			[]string{labelKind, labelOutcome},
		),
		reconcileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "reconcile_duration_seconds",
				Help:      "Duration of reconciliations in seconds, lock wait included",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{labelKind},
		),
		lockWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "lock_wait_duration_seconds",
				Help:      "Time spent waiting for the resource lock",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10},
			},
			[]string{labelKind, labelAcquired},
		),
		watchClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "watch_closed_total",
				Help:      "Total number of closed watch subscriptions by namespace and result",
			},
			[]string{labelNamespace, labelResult},
		),
		watchRecreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "watch_recreated_total",
				Help:      "Total number of watch re-creation attempts by namespace and result",
			},
			[]string{labelNamespace, labelResult},
		),
	}

	var err error
	if m.reconcileTotal, err = register(reg, m.reconcileTotal); err != nil {
		return nil, err
	}
	if m.reconcileDuration, err = register(reg, m.reconcileDuration); err != nil {
		return nil, err
	}
	if m.lockWait, err = register(reg, m.lockWait); err != nil {
		return nil, err
	}
	if m.watchClosed, err = register(reg, m.watchClosed); err != nil {
		return nil, err
	}
	if m.watchRecreated, err = register(reg, m.watchRecreated); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return collector, errors.Wrap(err, "failed to register collector")
	}
	return collector, nil
}

// RecordReconcile records the outcome and total duration of a reconciliation.
func (m *Metrics) RecordReconcile(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(kind, outcome).Inc()
	m.reconcileDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordLockWait records how long a reconciliation waited for its lock.
func (m *Metrics) RecordLockWait(kind string, waited time.Duration, acquired bool) {
	if m == nil {
		return
	}
	label := "false"
	if acquired {
		label = "true"
	}
	m.lockWait.WithLabelValues(kind, label).Observe(waited.Seconds())
}

// RecordWatchClosed records the closure of a watch subscription.
func (m *Metrics) RecordWatchClosed(namespace string, err error) {
	if m == nil {
		return
	}
	result := WatchResultClean
	if err != nil {
		result = WatchResultError
	}
	m.watchClosed.WithLabelValues(namespace, result).Inc()
}

// RecordWatchRecreated records one attempt to re-establish a watch.
func (m *Metrics) RecordWatchRecreated(namespace string, err error) {
	if m == nil {
		return
	}
	result := WatchResultSuccess
	if err != nil {
		result = WatchResultFailure
	}
	m.watchRecreated.WithLabelValues(namespace, result).Inc()
}
