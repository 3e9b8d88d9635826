// Package reconcile contains code to run Integrations and Validations
package reconcile

import (
	"context"
	"time"

	"github.com/app-sre/secret-expiration-notifier/pkg/unleash"
	"github.com/app-sre/secret-expiration-notifier/pkg/util"
	"github.com/spf13/viper"
)

type exitFunc func(int)

// IntegrationNameKey is the type of the context key carrying the integration name
type IntegrationNameKey string

// ContextIngetrationNameKey is used to store the running integration name in contexts
var ContextIngetrationNameKey IntegrationNameKey = "integrationName"

// Runner can be used to actually run Validations or Integrations
type Runner interface {
	Run()
}

// runnerConfig is used to unmarshal yaml configuration Runners
type runnerConfig struct {
	Timeout           int
	UseFeatureToggle  bool
	DryRun            bool
	RunOnce           bool
	SleepDurationSecs int
	MetricsAddress    string
}

// RunnerOption changes runner defaults, configuration file and environment still take precedence
type RunnerOption func(*viper.Viper)

// WithRunOnceDefault makes the runner exit after a single run unless RUN_ONCE is set
func WithRunOnceDefault() RunnerOption {
	return func(v *viper.Viper) {
		v.SetDefault("runonce", true)
	}
}

// newRunnerConfig creates a new runnerConfig from the global viper
func newRunnerConfig(opts ...RunnerOption) *runnerConfig {
	v := viper.GetViper()
	var ic runnerConfig
	v.SetDefault("timeout", 0)
	v.SetDefault("usefeaturetoggle", false)
	v.SetDefault("dryrun", true)
	v.SetDefault("runonce", false)
	v.SetDefault("sleepdurationsecs", 600)
	v.SetDefault("metricsaddress", ":9090")
	for _, opt := range opts {
		opt(v)
	}

	v.BindEnv("timeout", "RUNNER_TIMEOUT")
	v.BindEnv("usefeaturetoggle", "RUNNER_USE_FEATURE_TOGGLE")
	v.BindEnv("dryrun", "DRY_RUN")
	v.BindEnv("runonce", "RUN_ONCE")
	v.BindEnv("sleepdurationsecs", "SLEEP_DURATION_SECS")
	v.BindEnv("metricsaddress", "METRICS_ADDRESS")

	if err := v.Unmarshal(&ic); err != nil {
		util.Log().Fatalw("Error while unmarshalling configuration", "error", err.Error())
	}

	return &ic
}

// runContext returns the context a single run of name is executed in
func (c *runnerConfig) runContext(name string) (context.Context, context.CancelFunc) {
	ctx := context.WithValue(context.Background(), ContextIngetrationNameKey, name)
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(c.Timeout)*time.Second)
	}
	return context.WithCancel(ctx)
}

type featureEnabledFunc func(ctx context.Context, runnable string) (bool, error)

func isFeatureEnabled(ctx context.Context, runnable string) (bool, error) {
	client, err := unleash.NewUnleashClient()
	if err != nil {
		return false, err
	}
	f, err := client.GetFeature(ctx, runnable)
	if err != nil {
		return false, err
	}
	return f.Enabled, nil
}
