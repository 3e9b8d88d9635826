// Package expirationnotifier notifies owners of application registrations about expiring secrets
package expirationnotifier

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/app-sre/secret-expiration-notifier/pkg/aws"
	"github.com/app-sre/secret-expiration-notifier/pkg/graph"
	"github.com/app-sre/secret-expiration-notifier/pkg/mail"
	"github.com/app-sre/secret-expiration-notifier/pkg/reconcile"
	"github.com/app-sre/secret-expiration-notifier/pkg/state"
	"github.com/app-sre/secret-expiration-notifier/pkg/util"
	"github.com/app-sre/secret-expiration-notifier/pkg/vault"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// IntegrationName is the name of the integration
var IntegrationName = "secret-expiration-notifier"

const noOwner = "No owner"

type notifierConfig struct {
	ThresholdDays              int
	DistributionAddress        string
	TicketURL                  string
	IncludePasswordCredentials bool
	Report                     bool
}

func newNotifierConfig() *notifierConfig {
	var nc notifierConfig
	sub := util.EnsureViperSub(viper.GetViper(), "secret_expiration_notifier")
	sub.SetDefault("thresholddays", 30)
	sub.SetDefault("ticketurl", "https://link_to_ticketing_system")
	sub.SetDefault("includepasswordcredentials", false)
	sub.SetDefault("report", false)
	sub.BindEnv("thresholddays", "SECRET_EXPIRATION_THRESHOLD_DAYS")
	sub.BindEnv("distributionaddress", "SECRET_EXPIRATION_DISTRIBUTION_ADDRESS")
	sub.BindEnv("ticketurl", "SECRET_EXPIRATION_TICKET_URL")
	sub.BindEnv("includepasswordcredentials", "SECRET_EXPIRATION_INCLUDE_PASSWORD_CREDENTIALS")
	sub.BindEnv("report", "SECRET_EXPIRATION_REPORT")
	if err := sub.Unmarshal(&nc); err != nil {
		util.Log().Fatalw("Error while unmarshalling configuration", "error", err.Error())
	}
	return &nc
}

type notification struct {
	Application string
	AppID       string
	KeyID       string
	Kind        graph.CredentialKind
	Expiration  string
	DaysLeft    int
	Owner       string
	Recipients  []string
	SentAt      time.Time
}

type runReport struct {
	StartedAt     time.Time
	Applications  int
	Credentials   int
	Notifications []notification
}

type owner struct {
	name string
	mail string
}

// SecretExpirationNotifier sends a mail for every credential expiring in exactly ThresholdDays days
type SecretExpirationNotifier struct {
	config *notifierConfig
	vault  *vault.Client
	graph  graph.Client
	sender mail.Sender
	report state.Persistence

	startedAt    time.Time
	applications int

	now func() time.Time
}

// NewSecretExpirationNotifier creates a SecretExpirationNotifier, clients are created during Setup
func NewSecretExpirationNotifier() *SecretExpirationNotifier {
	return &SecretExpirationNotifier{
		config: newNotifierConfig(),
		now:    time.Now,
	}
}

func (n *SecretExpirationNotifier) needsVault() bool {
	return n.vault == nil && (n.graph == nil || n.sender == nil || (n.config.Report && n.report == nil))
}

// Setup creates missing clients and resets the per run counters
func (n *SecretExpirationNotifier) Setup(ctx context.Context) error {
	var err error

	if len(n.config.DistributionAddress) == 0 {
		return fmt.Errorf("distribution address not configured")
	}

	n.startedAt = n.now().UTC()
	n.applications = 0

	if n.needsVault() && vault.Enabled() {
		n.vault, err = vault.NewVaultClient()
		if err != nil {
			return errors.Wrap(err, "Error setting up vault client")
		}
	}

	if n.graph == nil {
		gc, err := graph.NewGraphClient(n.vault)
		if err != nil {
			return errors.Wrap(err, "Error setting up graph client")
		}
		n.graph = gc
	}

	if n.sender == nil {
		n.sender, err = mail.NewSender(n.graph, n.vault)
		if err != nil {
			return errors.Wrap(err, "Error setting up mail sender")
		}
	}

	if n.config.Report && n.report == nil {
		if len(state.S3StateBucket()) == 0 {
			return fmt.Errorf("report enabled but no state bucket configured")
		}
		awsSecrets, err := aws.GetAwsCredentials(n.vault)
		if err != nil {
			return errors.Wrap(err, "Error getting AWS secrets")
		}
		awsclient, err := aws.NewClient(ctx, awsSecrets)
		if err != nil {
			return errors.Wrap(err, "Error getting AWS client")
		}
		n.report = state.NewS3State("reports", IntegrationName, awsclient)
	}
	return nil
}

// CurrentState lists all applications and records the days left for every credential
func (n *SecretExpirationNotifier) CurrentState(ctx context.Context, ri *reconcile.ResourceInventory) error {
	apps, err := n.graph.ListApplications(ctx)
	if err != nil {
		return errors.Wrap(err, "Error while listing applications")
	}
	n.applications = len(apps)
	util.Log().Infow("Retrieved applications", "count", len(apps))

	for _, expiry := range graph.ScanCredentials(apps, n.config.IncludePasswordCredentials, n.now()) {
		ri.AddResourceState(expiry.Key(), &reconcile.ResourceState{
			Current: expiry,
		})
	}
	return nil
}

func (n *SecretExpirationNotifier) lookupOwner(ctx context.Context, app graph.Application) owner {
	if len(app.ID) == 0 {
		return owner{name: noOwner}
	}
	o, err := n.graph.GetApplicationOwner(ctx, app.ID)
	if err != nil {
		util.Log().Warnw("Error retrieving owner", "application", app.DisplayName, "error", err.Error())
		return owner{name: noOwner}
	}
	if len(o.Name()) == 0 {
		return owner{name: noOwner}
	}
	return owner{name: o.Name(), mail: o.Mail}
}

// DesiredState marks credentials expiring in exactly ThresholdDays days for notification
func (n *SecretExpirationNotifier) DesiredState(ctx context.Context, ri *reconcile.ResourceInventory) error {
	owners := map[string]owner{}
	for _, target := range sortedTargets(ri) {
		rs := ri.GetResourceState(target)
		current := rs.Current.(graph.CredentialExpiry)
		if current.DaysLeft != n.config.ThresholdDays {
			continue
		}

		o, ok := owners[current.Application.ID]
		if !ok {
			o = n.lookupOwner(ctx, current.Application)
			owners[current.Application.ID] = o
		}

		rs.Desired = notification{
			Application: current.Application.DisplayName,
			AppID:       current.Application.AppID,
			KeyID:       current.Credential.KeyID,
			Kind:        current.Kind,
			Expiration:  current.Credential.EndDateTime,
			DaysLeft:    current.DaysLeft,
			Owner:       o.name,
			Recipients:  util.UniqueFold([]string{o.mail, n.config.DistributionAddress}),
		}
	}
	return nil
}

// LogDiff logs every credential that will be notified
func (n *SecretExpirationNotifier) LogDiff(ri *reconcile.ResourceInventory) {
	due := 0
	for _, target := range sortedTargets(ri) {
		rs := ri.GetResourceState(target)
		desired, ok := rs.Desired.(notification)
		if !ok {
			current := rs.Current.(graph.CredentialExpiry)
			util.Log().Debugw("Credential not due", "application", current.Application.DisplayName, "keyId", current.Credential.KeyID, "daysLeft", current.DaysLeft)
			continue
		}
		due++
		util.Log().Infow("Credential expiring, notifying", "application", desired.Application, "keyId", desired.KeyID, "expiration", desired.Expiration, "recipients", desired.Recipients)
	}
	if due == 0 {
		util.Log().Infow("No keys expiring exactly in threshold, no email sent", "thresholdDays", n.config.ThresholdDays)
	}
}

// Reconcile sends one mail per due credential
func (n *SecretExpirationNotifier) Reconcile(ctx context.Context, ri *reconcile.ResourceInventory) error {
	sent := []notification{}
	for _, target := range sortedTargets(ri) {
		desired, ok := ri.GetResourceState(target).Desired.(notification)
		if !ok {
			continue
		}
		msg, err := renderMessage(desired, n.config.ThresholdDays, n.config.TicketURL)
		if err != nil {
			return errors.Wrapf(err, "Error rendering notification for %s", target)
		}
		if err := n.sender.Send(ctx, msg); err != nil {
			return errors.Wrapf(err, "Error while sending notification for %s", target)
		}
		util.Log().Infow("Notification sent", "application", desired.Application, "keyId", desired.KeyID, "recipients", desired.Recipients)

		desired.SentAt = n.now().UTC()
		sent = append(sent, desired)
	}

	if n.report != nil {
		err := n.report.Add(ctx, n.startedAt.Format(time.RFC3339), runReport{
			StartedAt:     n.startedAt,
			Applications:  n.applications,
			Credentials:   len(ri.State),
			Notifications: sent,
		})
		if err != nil {
			return errors.Wrap(err, "Error while writing run report")
		}
	}
	return nil
}

func sortedTargets(ri *reconcile.ResourceInventory) []string {
	targets := make([]string, 0, len(ri.State))
	for target := range ri.State {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets
}
