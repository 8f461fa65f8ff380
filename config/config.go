// Package config holds the operator process configuration.
package config

import (
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/ptr"
)

// EnvPrefix prefixes every environment variable read by FromEnviron.
const EnvPrefix = "OPCORE_"

// Defaults.
const (
	DefaultLockTimeout       = 10 * time.Second
	DefaultResyncInterval    = 2 * time.Minute
	DefaultResyncConcurrency = 4
	DefaultMetricsAddress    = ":8080"
)

type Backoff struct {
	Initial time.Duration `mapstructure:"initial"`
	Max     time.Duration `mapstructure:"max"`
	Factor  float64       `mapstructure:"factor"`
}

type Sentry struct {
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	TracesSampleRate float64 `mapstructure:"tracesSampleRate"`
}

type Config struct {
	// Namespaces to watch and resync. An empty list means every namespace.
	Namespaces    []string `mapstructure:"namespaces"`
	LabelSelector string   `mapstructure:"labelSelector"`

	LockTimeout       time.Duration `mapstructure:"lockTimeout"`
	ResyncInterval    time.Duration `mapstructure:"resyncInterval"`
	ResyncConcurrency int           `mapstructure:"resyncConcurrency"`

	// WatchRecreateDelay is waited before re-creating a watch that closed
	// with an error. Zero re-creates immediately.
	WatchRecreateDelay *time.Duration `mapstructure:"watchRecreateDelay"`
	// WatchBackoff paces retries when re-establishing a watch keeps failing.
	WatchBackoff Backoff `mapstructure:"watchBackoff"`

	MetricsBindAddress string `mapstructure:"metricsBindAddress"`
	Sentry             Sentry `mapstructure:"sentry"`
}

func Default() Config {
	return Config{
		LockTimeout:        DefaultLockTimeout,
		ResyncInterval:     DefaultResyncInterval,
		ResyncConcurrency:  DefaultResyncConcurrency,
		MetricsBindAddress: DefaultMetricsAddress,
		WatchBackoff: Backoff{
			Initial: 100 * time.Millisecond,
			Max:     30 * time.Second,
			Factor:  2,
		},
	}
}

// Load decodes raw on top of Default and validates the result. Durations
// may be given as strings ("10s") and lists as comma separated strings.
func Load(raw map[string]any) (Config, error) {
	cfg := Default()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to create config decoder")
	}

	if err := decoder.Decode(raw); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnviron turns OPCORE_* variables into the nested map Load expects.
// Double underscores separate nesting levels and single underscores are
// dropped while lower-camel-casing, so OPCORE_WATCH_BACKOFF__MAX becomes
// watchBackoff.max.
func FromEnviron(environ []string) map[string]any {
	raw := make(map[string]any)

	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}

		parts := strings.Split(strings.TrimPrefix(key, EnvPrefix), "__")
		node := raw
		for i, part := range parts {
			name := lowerCamel(part)
			if i == len(parts)-1 {
				node[name] = value
				break
			}
			child, ok := node[name].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[name] = child
			}
			node = child
		}
	}

	return raw
}

func lowerCamel(s string) string {
	words := strings.Split(strings.ToLower(s), "_")
	for i := 1; i < len(words); i++ {
		if words[i] == "" {
			continue
		}
		words[i] = strings.ToUpper(words[i][:1]) + words[i][1:]
	}
	return strings.Join(words, "")
}

func (c Config) Validate() error {
	if c.LockTimeout <= 0 {
		return errors.New("lockTimeout must be positive")
	}
	if c.ResyncInterval < 0 {
		return errors.New("resyncInterval must not be negative")
	}
	if c.ResyncConcurrency <= 0 {
		return errors.New("resyncConcurrency must be positive")
	}
	if ptr.Deref(c.WatchRecreateDelay, 0) < 0 {
		return errors.New("watchRecreateDelay must not be negative")
	}
	if c.WatchBackoff.Initial < 0 || c.WatchBackoff.Max < 0 || c.WatchBackoff.Factor < 0 {
		return errors.New("watchBackoff values must not be negative")
	}
	if _, err := c.Selector(); err != nil {
		return err
	}
	return nil
}

// Selector parses LabelSelector. An empty selector yields nil, which matches everything.
func (c Config) Selector() (labels.Selector, error) {
	if c.LabelSelector == "" {
		return nil, nil
	}
	selector, err := labels.Parse(c.LabelSelector)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid labelSelector %q", c.LabelSelector)
	}
	return selector, nil
}

// WatchNamespaces returns the namespaces to watch; a single empty string
// stands for every namespace.
func (c Config) WatchNamespaces() []string {
	if len(c.Namespaces) == 0 {
		return []string{""}
	}
	return c.Namespaces
}

// RecreateDelay returns WatchRecreateDelay, zero when unset.
func (c Config) RecreateDelay() time.Duration {
	return ptr.Deref(c.WatchRecreateDelay, 0)
}

// Backoff converts WatchBackoff for use with k8s.io/apimachinery/pkg/util/wait.
func (c Config) Backoff() wait.Backoff {
	return wait.Backoff{
		Duration: c.WatchBackoff.Initial,
		Factor:   c.WatchBackoff.Factor,
		Jitter:   0.1,
		Steps:    1 << 30,
		Cap:      c.WatchBackoff.Max,
	}
}
