package cmd

import (
	"github.com/app-sre/secret-expiration-notifier/internal/expirationcheck"
	"github.com/app-sre/secret-expiration-notifier/pkg/reconcile"
)

func secretExpirationCheck() {
	check := expirationcheck.NewSecretExpirationCheck()
	runner := reconcile.NewValidationRunner(check, expirationcheck.ValidationName)
	runner.Run()
}
