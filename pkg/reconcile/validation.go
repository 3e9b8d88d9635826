package reconcile

import (
	"context"
	"os"

	"github.com/app-sre/secret-expiration-notifier/pkg/util"
)

// Validation describes the methods an Validation must implement
type Validation interface {
	// Setup method is used to fetch secrets, setup clients or prepare state...
	Setup(context.Context) error
	// Validate is doing the actual validation
	Validate(context.Context) ([]ValidationError, error)
}

// ValidationError contains errors, that are discovered during Validate()
type ValidationError struct {
	Path       string
	Validation string
	Error      error
}

// ValidationRunner is an implementation of Runner
type ValidationRunner struct {
	Runnable Validation
	Name     string
	Exiter   exitFunc
	config   *runnerConfig

	featureEnabled featureEnabledFunc
}

// NewValidationRunner creates a ValidationRunner for a given Validation
func NewValidationRunner(runnable Validation, name string) *ValidationRunner {
	return &ValidationRunner{
		Runnable:       runnable,
		Name:           name,
		config:         newRunnerConfig(),
		Exiter:         os.Exit,
		featureEnabled: isFeatureEnabled,
	}
}

// Run executes the validation configured as target
func (v *ValidationRunner) Run() {
	v.Exiter(v.validate())
}

func (v *ValidationRunner) validate() int {
	ctx, cancel := v.config.runContext(v.Name)
	defer cancel()

	if v.config.UseFeatureToggle {
		enabled, err := v.featureEnabled(ctx, v.Name)
		if err != nil {
			util.Log().Errorw("Error during integration", "error", err.Error())
			return 1
		}
		if !enabled {
			util.Log().Warnw("Integration not enabled")
			return 0
		}
	}

	if err := v.Runnable.Setup(ctx); err != nil {
		util.Log().Errorw("Error during integration", "error", err.Error())
		return 1
	}

	validationErrors, err := v.Runnable.Validate(ctx)
	if err != nil {
		util.Log().Errorw("Error during integration", "error", err.Error())
		return 1
	}
	if len(validationErrors) > 0 {
		for _, e := range validationErrors {
			util.Log().Infow("Validation error", "path", e.Path, "validation", e.Validation, "error", e.Error.Error())
		}
		return 1
	}
	return 0
}

// ConcatValidationErrors can be used to merge two list of ValidationErrors
func ConcatValidationErrors(a, b []ValidationError) []ValidationError {
	allErrors := make([]ValidationError, len(a)+len(b))
	copy(allErrors, a)
	for i, e := range b {
		allErrors[len(a)+i] = e
	}
	return allErrors
}
