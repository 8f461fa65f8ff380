// Command opcore-example runs an operator reconciling ConfigMaps with a
// handler that only logs, to exercise the reconciliation core end to end.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	corev1 "k8s.io/api/core/v1"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	opcore "github.com/u-ctf/operator-core"
	"github.com/u-ctf/operator-core/config"
	"github.com/u-ctf/operator-core/instrument"
	"github.com/u-ctf/operator-core/tracing"
	"github.com/u-ctf/operator-core/watch"
)

const kindConfigMap = "ConfigMap"

func main() {
	ctrl.SetLogger(zap.New(zap.UseDevMode(os.Getenv("OPCORE_DEV") != "")))
	logger := ctrl.Log.WithName("opcore-example")

	if err := run(ctrl.SetupSignalHandler(), logger); err != nil {
		logger.Error(err, "Operator exited with an error")
		os.Exit(1)
	}
}

func run(ctx context.Context, logger logr.Logger) error {
	cfg, err := config.Load(config.FromEnviron(os.Environ()))
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	sentryEnabled, err := tracing.InitSentry(tracing.SentryOptions{
		DSN:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize sentry")
	}

	loggerFunc := instrument.NewLoggerFunc(logger)
	var tracer instrument.Tracer = instrument.NewOtelTracer(otel.Tracer("opcore-example"))
	if sentryEnabled {
		loggerFunc = instrument.NewSentryLoggerFunc(logger)
		tracer = instrument.NewSentryTracer(otel.Tracer("opcore-example"))
	}

	metrics, err := instrument.DefaultMetrics()
	if err != nil {
		return errors.Wrap(err, "failed to register metrics")
	}

	selector, err := cfg.Selector()
	if err != nil {
		return errors.Wrap(err, "failed to parse label selector")
	}

	c, err := client.NewWithWatch(ctrl.GetConfigOrDie(), client.Options{Scheme: clientgoscheme.Scheme})
	if err != nil {
		return errors.Wrap(err, "failed to create kubernetes client")
	}

	operator := opcore.NewOperatorFromConfig(cfg).
		WithLogger(logger).
		WithLoggerFunc(loggerFunc).
		WithMetrics(metrics).
		Build()

	coordinator, err := opcore.NewManagedCoordinatorFor(operator, kindConfigMap,
		opcore.NewClientStore(c, &corev1.ConfigMap{}, &corev1.ConfigMapList{}),
		configMapHandler(),
	).
		WithValidator(configMapValidator()).
		WithSelector(selector).
		WithTracer(tracer).
		Build()
	if err != nil {
		return errors.Wrap(err, "failed to build configmap coordinator")
	}

	if err := operator.Register(coordinator, watch.NewClientTransport(c, &corev1.ConfigMapList{})); err != nil {
		return errors.Wrap(err, "failed to register configmap coordinator")
	}

	server := &http.Server{
		Addr:              cfg.MetricsBindAddress,
		Handler:           promhttp.HandlerFor(ctrlmetrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Metrics server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting operator", "namespaces", cfg.WatchNamespaces(), "selector", cfg.LabelSelector)
	return errors.Wrap(operator.Start(ctx), "operator stopped")
}

func configMapHandler() opcore.Handler[*corev1.ConfigMap] {
	return opcore.HandlerFuncs[*corev1.ConfigMap]{
		CreateOrUpdateFunc: func(ctx context.Context, req opcore.Request, cm *corev1.ConfigMap) error {
			logr.FromContextOrDiscard(ctx).Info("ConfigMap observed", "request", req.String(), "keys", len(cm.Data))
			return nil
		},
		DeleteFunc: func(ctx context.Context, req opcore.Request) (bool, error) {
			logr.FromContextOrDiscard(ctx).Info("ConfigMap gone", "request", req.String())
			return false, nil
		},
	}
}

func configMapValidator() opcore.Validator[*corev1.ConfigMap] {
	return opcore.NewValidationVisitorFor[*corev1.ConfigMap]().
		WithKnownFields("", "apiVersion", "kind", "metadata", "data", "binaryData", "immutable").
		WithDeprecatedField("data.legacyMode", "use data.mode instead").
		WithMutuallyExclusive("data.mode", "data.legacyMode").
		Build()
}
