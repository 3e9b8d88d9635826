package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var scanNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestDaysLeft(t *testing.T) {
	assert.Equal(t, 30, DaysLeft(scanNow.Add(30*day), scanNow))
	assert.Equal(t, 29, DaysLeft(scanNow.Add(30*day-time.Second), scanNow))
	assert.Equal(t, 0, DaysLeft(scanNow.Add(time.Hour), scanNow))
	assert.Equal(t, -1, DaysLeft(scanNow.Add(-time.Hour), scanNow))
	assert.Equal(t, -1, DaysLeft(scanNow.Add(-day), scanNow))
	assert.Equal(t, -2, DaysLeft(scanNow.Add(-day-time.Second), scanNow))
}

func TestScanCredentials(t *testing.T) {
	apps := []Application{
		{
			ID:          "obj-1",
			DisplayName: "app-1",
			KeyCredentials: []Credential{
				{KeyID: "k1", EndDateTime: "2024-05-31T12:00:00Z"},
				{KeyID: "k2"},
				{KeyID: "k3", EndDateTime: "31.05.2024"},
			},
			PasswordCredentials: []Credential{
				{KeyID: "p1", EndDateTime: "2024-05-02T12:00:00Z"},
			},
		},
	}

	expiries := ScanCredentials(apps, false, scanNow)
	assert.Len(t, expiries, 1)
	assert.Equal(t, "obj-1/key/k1", expiries[0].Key())
	assert.Equal(t, 30, expiries[0].DaysLeft)
	assert.Equal(t, KeyCredential, expiries[0].Kind)

	expiries = ScanCredentials(apps, true, scanNow)
	assert.Len(t, expiries, 2)
	assert.Equal(t, PasswordCredential, expiries[1].Kind)
	assert.Equal(t, 1, expiries[1].DaysLeft)
}

func TestScanCredentialsEmpty(t *testing.T) {
	assert.Empty(t, ScanCredentials(nil, true, scanNow))
}

func TestCredentialExpiryKeyUnique(t *testing.T) {
	apps := []Application{
		{
			ID: "obj-1",
			KeyCredentials: []Credential{
				{KeyID: "shared", EndDateTime: "2024-05-31T12:00:00Z"},
				{EndDateTime: "2024-05-31T12:00:00Z"},
				{EndDateTime: "2024-06-30T12:00:00Z"},
			},
			PasswordCredentials: []Credential{
				{KeyID: "shared", EndDateTime: "2024-09-01T12:00:00Z"},
			},
		},
	}

	keys := map[string]bool{}
	for _, expiry := range ScanCredentials(apps, true, scanNow) {
		keys[expiry.Key()] = true
	}
	assert.Equal(t, map[string]bool{
		"obj-1/key/shared":      true,
		"obj-1/key/#1":          true,
		"obj-1/key/#2":          true,
		"obj-1/password/shared": true,
	}, keys)
}
