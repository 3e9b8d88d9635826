package graph

import (
	"fmt"
	"time"

	"github.com/app-sre/secret-expiration-notifier/pkg/util"
)

const day = 24 * time.Hour

// CredentialKind tells key and password credentials apart
type CredentialKind string

const (
	// KeyCredential is a certificate credential
	KeyCredential CredentialKind = "key"
	// PasswordCredential is a client secret
	PasswordCredential CredentialKind = "password"
)

// CredentialExpiry is a credential with a parsed expiration relative to a point in time
type CredentialExpiry struct {
	Application Application
	Credential  Credential
	Kind        CredentialKind
	// Index is the position within the credentials of the same Kind
	Index      int
	Expiration time.Time
	DaysLeft   int
}

// Key identifies the credential across applications.
// Credentials without keyId are told apart by their position.
func (c CredentialExpiry) Key() string {
	if len(c.Credential.KeyID) == 0 {
		return fmt.Sprintf("%s/%s/#%d", c.Application.ID, c.Kind, c.Index)
	}
	return fmt.Sprintf("%s/%s/%s", c.Application.ID, c.Kind, c.Credential.KeyID)
}

// DaysLeft returns the whole days from now until end, rounded towards the past
func DaysLeft(end, now time.Time) int {
	d := end.Sub(now)
	days := int(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	return days
}

// ScanCredentials computes the expiry of all key credentials, and password credentials if requested.
// Credentials without or with an unparseable endDateTime are skipped.
func ScanCredentials(apps []Application, includePasswords bool, now time.Time) []CredentialExpiry {
	expiries := []CredentialExpiry{}
	for _, app := range apps {
		expiries = append(expiries, scan(app, app.KeyCredentials, KeyCredential, now)...)
		if includePasswords {
			expiries = append(expiries, scan(app, app.PasswordCredentials, PasswordCredential, now)...)
		}
	}
	return expiries
}

func scan(app Application, creds []Credential, kind CredentialKind, now time.Time) []CredentialExpiry {
	expiries := []CredentialExpiry{}
	for i, cred := range creds {
		end, err := cred.Expiration()
		if err != nil {
			util.Log().Debugw("Skipping credential", "application", app.DisplayName, "keyId", cred.KeyID, "error", err.Error())
			continue
		}
		expiries = append(expiries, CredentialExpiry{
			Application: app,
			Credential:  cred,
			Kind:        kind,
			Index:       i,
			Expiration:  end,
			DaysLeft:    DaysLeft(end, now),
		})
	}
	return expiries
}
