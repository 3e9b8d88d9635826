package cmd

import (
	"github.com/app-sre/secret-expiration-notifier/internal/expirationnotifier"
	"github.com/app-sre/secret-expiration-notifier/pkg/reconcile"
)

func secretExpirationNotifier() {
	notifier := expirationnotifier.NewSecretExpirationNotifier()
	runner := reconcile.NewIntegrationRunner(notifier, expirationnotifier.IntegrationName, reconcile.WithRunOnceDefault())
	runner.Run()
}
