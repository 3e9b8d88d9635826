// Package expirationcheck fails when application credentials are about to expire
package expirationcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/app-sre/secret-expiration-notifier/pkg/graph"
	"github.com/app-sre/secret-expiration-notifier/pkg/reconcile"
	"github.com/app-sre/secret-expiration-notifier/pkg/util"
	"github.com/app-sre/secret-expiration-notifier/pkg/vault"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ValidationName is the name of the validation
var ValidationName = "secret-expiration-check"

type checkConfig struct {
	ThresholdDays              int
	IncludePasswordCredentials bool
}

func newCheckConfig() *checkConfig {
	var cc checkConfig
	sub := util.EnsureViperSub(viper.GetViper(), "secret_expiration_check")
	sub.SetDefault("thresholddays", 30)
	sub.SetDefault("includepasswordcredentials", false)
	sub.BindEnv("thresholddays", "SECRET_EXPIRATION_THRESHOLD_DAYS")
	sub.BindEnv("includepasswordcredentials", "SECRET_EXPIRATION_INCLUDE_PASSWORD_CREDENTIALS")
	if err := sub.Unmarshal(&cc); err != nil {
		util.Log().Fatalw("Error while unmarshalling configuration", "error", err.Error())
	}
	return &cc
}

// SecretExpirationCheck reports every credential expiring within ThresholdDays days
type SecretExpirationCheck struct {
	config *checkConfig
	graph  graph.Client
	now    func() time.Time
}

// NewSecretExpirationCheck creates a new SecretExpirationCheck
func NewSecretExpirationCheck() *SecretExpirationCheck {
	return &SecretExpirationCheck{
		config: newCheckConfig(),
		now:    time.Now,
	}
}

// Setup creates the graph client
func (c *SecretExpirationCheck) Setup(ctx context.Context) error {
	if c.graph != nil {
		return nil
	}
	var vc *vault.Client
	if vault.Enabled() {
		var err error
		vc, err = vault.NewVaultClient()
		if err != nil {
			return errors.Wrap(err, "Error setting up vault client")
		}
	}
	gc, err := graph.NewGraphClient(vc)
	if err != nil {
		return errors.Wrap(err, "Error setting up graph client")
	}
	c.graph = gc
	return nil
}

// Validate lists all applications and returns a ValidationError for credentials about to expire.
// Already expired credentials are ignored.
func (c *SecretExpirationCheck) Validate(ctx context.Context) ([]reconcile.ValidationError, error) {
	apps, err := c.graph.ListApplications(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Error while listing applications")
	}
	util.Log().Infow("Retrieved applications", "count", len(apps))

	validationErrors := []reconcile.ValidationError{}
	for _, expiry := range graph.ScanCredentials(apps, c.config.IncludePasswordCredentials, c.now()) {
		if expiry.DaysLeft < 0 || expiry.DaysLeft > c.config.ThresholdDays {
			continue
		}
		validationErrors = append(validationErrors, reconcile.ValidationError{
			Path:       fmt.Sprintf("%s/%s", expiry.Application.DisplayName, expiry.Credential.KeyID),
			Validation: "validateExpiration",
			Error:      fmt.Errorf("%s credential expires in %d days on %s", expiry.Kind, expiry.DaysLeft, expiry.Credential.EndDateTime),
		})
	}
	return validationErrors, nil
}
