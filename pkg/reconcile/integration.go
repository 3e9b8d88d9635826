package reconcile

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/app-sre/secret-expiration-notifier/pkg/util"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Integration describes the set of methods Integrations must implement
type Integration interface {
	CurrentState(context.Context, *ResourceInventory) error
	DesiredState(context.Context, *ResourceInventory) error
	Reconcile(context.Context, *ResourceInventory) error
	LogDiff(*ResourceInventory)
	Setup(context.Context) error
}

// ResourceInventory must be used to describe the diff an integration found
type ResourceInventory struct {
	State map[string]*ResourceState
}

// NewResourceInventory creates an empty ResourceInventory
func NewResourceInventory() *ResourceInventory {
	return &ResourceInventory{
		State: map[string]*ResourceState{},
	}
}

// AddResourceState adds or replaces the state of target
func (ri *ResourceInventory) AddResourceState(target string, rs *ResourceState) {
	ri.State[target] = rs
}

// GetResourceState returns the state of target, nil if unknown
func (ri *ResourceInventory) GetResourceState(target string) *ResourceState {
	return ri.State[target]
}

// ResourceState holds current and desired state of a single target
type ResourceState struct {
	Config  interface{}
	Current interface{}
	Desired interface{}
}

type integrationRunnerMetrics struct {
	status prometheus.Gauge
	time   prometheus.Gauge
}

func newIntegrationRunnerMetrics(reg prometheus.Registerer, integration string) *integrationRunnerMetrics {
	labels := prometheus.Labels{"integration": integration}

	m := &integrationRunnerMetrics{
		status: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "integration_last_run_status",
			Help:        "Last run status",
			ConstLabels: labels,
		}),
		time: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "integration_last_run_seconds",
			Help:        "Last run duration in seconds",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.status)
	reg.MustRegister(m.time)
	return m
}

// IntegrationRunner is an implementation of Runner
type IntegrationRunner struct {
	Runnable Integration
	Name     string
	config   *runnerConfig
	metrics  *integrationRunnerMetrics
	registry *prometheus.Registry

	exit           exitFunc
	featureEnabled featureEnabledFunc
}

// NewIntegrationRunner creates a IntegrationRunner for a given Integration
func NewIntegrationRunner(runnable Integration, name string, opts ...RunnerOption) *IntegrationRunner {
	registry := prometheus.NewRegistry()
	return &IntegrationRunner{
		Runnable:       runnable,
		Name:           name,
		config:         newRunnerConfig(opts...),
		registry:       registry,
		metrics:        newIntegrationRunnerMetrics(registry, name),
		exit:           os.Exit,
		featureEnabled: isFeatureEnabled,
	}
}

// runIntegration executes a single run and returns the exit code of it
func (i *IntegrationRunner) runIntegration() int {
	ctx, cancel := i.config.runContext(i.Name)
	defer cancel()

	if i.config.UseFeatureToggle {
		enabled, err := i.featureEnabled(ctx, i.Name)
		if err != nil {
			util.Log().Errorw("Error while checking feature toggle", "error", err.Error())
			return 1
		}
		if !enabled {
			util.Log().Warnw("Integration not enabled", "integration", i.Name)
			return 0
		}
	}

	ri := NewResourceInventory()

	if err := i.Runnable.Setup(ctx); err != nil {
		util.Log().Errorw("Error during setup", "error", err.Error())
		return 1
	}
	if err := i.Runnable.CurrentState(ctx, ri); err != nil {
		util.Log().Errorw("Error during CurrentState", "error", err.Error())
		return 1
	}
	if err := i.Runnable.DesiredState(ctx, ri); err != nil {
		util.Log().Errorw("Error during DesiredState", "error", err.Error())
		return 1
	}
	i.Runnable.LogDiff(ri)
	if i.config.DryRun {
		util.Log().Debugw("DryRun is enabled, not running Reconcile")
		return 0
	}
	if err := i.Runnable.Reconcile(ctx, ri); err != nil {
		util.Log().Errorw("Error during Reconcile", "error", err.Error())
		return 1
	}
	return 0
}

// Run executes the integration once or forever, depending on RunOnce
func (i *IntegrationRunner) Run() {
	go func(i *IntegrationRunner) {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(i.registry, promhttp.HandlerOpts{Registry: i.registry}))
		util.Log().Fatal(http.ListenAndServe(i.config.MetricsAddress, mux))
	}(i)

	for {
		if exitCode, done := i.runAndRecord(); done {
			i.exit(exitCode)
			return
		}
		util.Log().Debugw("Sleeping", "seconds", i.config.SleepDurationSecs)
		time.Sleep(time.Duration(i.config.SleepDurationSecs) * time.Second)
	}
}

// runAndRecord runs the integration, records metrics and tells whether the runner is done
func (i *IntegrationRunner) runAndRecord() (int, bool) {
	start := time.Now()
	exitCode := i.runIntegration()
	i.metrics.time.Set(time.Since(start).Seconds())
	i.metrics.status.Set(float64(exitCode))
	if !i.config.RunOnce {
		util.Log().Debugw("RunOnce is disabled, not exiting", "exitCode", exitCode)
		return exitCode, false
	}
	return exitCode, true
}
