package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/app-sre/secret-expiration-notifier/pkg/vault"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

type graphMock struct {
	*httptest.Server
	tokenRequests int32
	expiresIn     int
}

func newGraphMock(t *testing.T, handler http.HandlerFunc) *graphMock {
	return newExpiringGraphMock(t, 3600, handler)
}

func newExpiringGraphMock(t *testing.T, expiresIn int, handler http.HandlerFunc) *graphMock {
	m := &graphMock{expiresIn: expiresIn}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tenant/oauth2/v2.0/token" {
			atomic.AddInt32(&m.tokenRequests, 1)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
			assert.Equal(t, "https://graph.microsoft.com/.default", r.Form.Get("scope"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"access_token": "graph-token", "token_type": "Bearer", "expires_in": %d}`, m.expiresIn)
			return
		}
		assert.Equal(t, "Bearer graph-token", r.Header.Get("Authorization"))
		handler(w, r)
	}))
	return m
}

func setupGraphViper(url string) {
	viper.GetViper().Set("graph", map[string]interface{}{
		"baseurl":      url + "/v1.0",
		"authorityurl": url,
		"tenantid":     "tenant",
		"clientid":     "client",
		"clientsecret": "secret",
	})
}

func newTestClient(t *testing.T, m *graphMock) *APIClient {
	setupGraphViper(m.URL)
	client, err := NewGraphClient(nil)
	assert.NoError(t, err)
	return client
}

func TestNewClientConfigDefaults(t *testing.T) {
	viper.GetViper().Set("graph", make(map[string]interface{}))
	cfg := newClientConfig()
	assert.Equal(t, "https://graph.microsoft.com/v1.0", cfg.BaseURL)
	assert.Equal(t, "https://login.microsoftonline.com", cfg.AuthorityURL)
	assert.Equal(t, 60, cfg.Timeout)
	assert.Equal(t, 0, cfg.Retries)

	cfg.TenantID = "tenant"
	assert.Equal(t, "https://login.microsoftonline.com/tenant/oauth2/v2.0/token", cfg.tokenURL())
}

func TestNewGraphClientMissingCredentials(t *testing.T) {
	viper.GetViper().Set("graph", make(map[string]interface{}))
	t.Setenv("AZURE_TENANT_ID", "")
	t.Setenv("AZURE_CLIENT_ID", "")
	t.Setenv("AZURE_CLIENT_SECRET", "")
	t.Setenv("GRAPH_CREDENTIALS_VAULT_PATH", "")

	_, err := NewGraphClient(nil)
	assert.EqualError(t, err, "graph client credentials not configured")
}

func TestResolveCredentialsFromVault(t *testing.T) {
	vaultMock := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/azure/graph" {
			fmt.Fprint(w, `{"data": {"tenant_id": "t", "client_id": "c", "client_secret": "s"}}`)
		}
	}))
	defer vaultMock.Close()
	t.Setenv("VAULT_TOKEN", "token")
	t.Setenv("VAULT_AUTHTYPE", "token")
	t.Setenv("VAULT_SERVER", vaultMock.URL)
	viper.GetViper().Set("vault", make(map[string]interface{}))
	vc, err := vault.NewVaultClient()
	assert.NoError(t, err)

	cfg := &clientConfig{CredentialsVaultPath: "azure/graph"}
	assert.NoError(t, cfg.resolveCredentials(vc))
	assert.Equal(t, "t", cfg.TenantID)
	assert.Equal(t, "c", cfg.ClientID)
	assert.Equal(t, "s", cfg.ClientSecret)
}

func writeApplications(w http.ResponseWriter, next string, ids ...string) {
	page := applicationPage{NextLink: next}
	for _, id := range ids {
		page.Value = append(page.Value, Application{ID: id, DisplayName: "app " + id})
	}
	json.NewEncoder(w).Encode(page)
}

func TestListApplicationsPagination(t *testing.T) {
	var requests int32
	var m *graphMock
	m = newGraphMock(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, "/v1.0/applications", r.URL.Path)
		switch r.URL.Query().Get("$skiptoken") {
		case "":
			assert.Contains(t, r.URL.Query().Get("$select"), "keyCredentials")
			writeApplications(w, m.URL+"/v1.0/applications?$skiptoken=2", "1", "2")
		case "2":
			writeApplications(w, m.URL+"/v1.0/applications?$skiptoken=3", "3")
		case "3":
			writeApplications(w, "", "4", "5", "6")
		}
	})
	defer m.Close()

	client := newTestClient(t, m)
	apps, err := client.ListApplications(context.Background())
	assert.NoError(t, err)
	assert.Len(t, apps, 6)
	assert.Equal(t, int32(3), requests)
	assert.Equal(t, "1", apps[0].ID)
	assert.Equal(t, "6", apps[5].ID)
	assert.Equal(t, int32(1), m.tokenRequests)
}

func TestListApplicationsEmpty(t *testing.T) {
	m := newGraphMock(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value": []}`)
	})
	defer m.Close()

	client := newTestClient(t, m)
	apps, err := client.ListApplications(context.Background())
	assert.NoError(t, err)
	assert.Len(t, apps, 0)
}

func TestListApplicationsPageFailureAborts(t *testing.T) {
	var m *graphMock
	m = newGraphMock(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("$skiptoken") == "" {
			writeApplications(w, m.URL+"/v1.0/applications?$skiptoken=2", "1")
			return
		}
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"code": "Authorization_RequestDenied"}}`)
	})
	defer m.Close()

	client := newTestClient(t, m)
	apps, err := client.ListApplications(context.Background())
	assert.Nil(t, apps)
	assert.Error(t, err)

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusForbidden, transportErr.StatusCode)
	assert.Equal(t, "list applications", transportErr.Op)
	assert.Contains(t, transportErr.Body, "Authorization_RequestDenied")
}

func TestListApplicationsPaginationLoop(t *testing.T) {
	var m *graphMock
	m = newGraphMock(t, func(w http.ResponseWriter, r *http.Request) {
		writeApplications(w, m.URL+"/v1.0/applications?$skiptoken=1", "1")
	})
	defer m.Close()

	client := newTestClient(t, m)
	_, err := client.ListApplications(context.Background())
	assert.ErrorContains(t, err, "pagination loop detected")

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "list applications", transportErr.Op)
}

func TestTokenRefreshAfterRunContextCancelled(t *testing.T) {
	m := newExpiringGraphMock(t, 1, func(w http.ResponseWriter, r *http.Request) {
		writeApplications(w, "", "1")
	})
	defer m.Close()

	client := newTestClient(t, m)

	firstRun, cancel := context.WithCancel(context.Background())
	apps, err := client.ListApplications(firstRun)
	assert.NoError(t, err)
	assert.Len(t, apps, 1)
	cancel()

	apps, err = client.ListApplications(context.Background())
	assert.NoError(t, err)
	assert.Len(t, apps, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&m.tokenRequests))
}

func TestGetApplicationOwner(t *testing.T) {
	m := newGraphMock(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mail,displayName", r.URL.Query().Get("$select"))
		switch r.URL.Path {
		case "/v1.0/applications/with-owner/owners":
			fmt.Fprint(w, `{"value": [{"mail": "owner@example.com", "displayName": "Owner"}, {"mail": "second@example.com"}]}`)
		case "/v1.0/applications/without-owner/owners":
			fmt.Fprint(w, `{"value": []}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer m.Close()

	client := newTestClient(t, m)
	owner, err := client.GetApplicationOwner(context.Background(), "with-owner")
	assert.NoError(t, err)
	assert.Equal(t, "owner@example.com", owner.Name())

	owner, err = client.GetApplicationOwner(context.Background(), "without-owner")
	assert.NoError(t, err)
	assert.Nil(t, owner)

	_, err = client.GetApplicationOwner(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestSendMail(t *testing.T) {
	m := newGraphMock(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1.0/users/noreply@example.com/sendMail", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{
			"message": {
				"subject": "Alert",
				"body": {"contentType": "HTML", "content": "<p>hi</p>"},
				"toRecipients": [
					{"emailAddress": {"address": "owner@example.com"}},
					{"emailAddress": {"address": "team@example.com"}}
				]
			},
			"saveToSentItems": true
		}`, string(body))
		w.WriteHeader(http.StatusAccepted)
	})
	defer m.Close()

	client := newTestClient(t, m)
	err := client.SendMail(context.Background(), "noreply@example.com", &MailMessage{
		Subject:    "Alert",
		HTMLBody:   "<p>hi</p>",
		Recipients: []string{"owner@example.com", "team@example.com"},
	})
	assert.NoError(t, err)
}

func TestSendMailUnexpectedStatus(t *testing.T) {
	m := newGraphMock(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"code": "ErrorInvalidRecipients"}}`)
	})
	defer m.Close()

	client := newTestClient(t, m)
	err := client.SendMail(context.Background(), "noreply@example.com", &MailMessage{
		Subject:    "Alert",
		Recipients: []string{"team@example.com"},
	})
	assert.ErrorContains(t, err, "send mail")
	assert.ErrorContains(t, err, "unexpected status 400")
}

func TestSendMailNoRecipients(t *testing.T) {
	client := &APIClient{config: &clientConfig{}}
	err := client.SendMail(context.Background(), "noreply@example.com", &MailMessage{Subject: "Alert"})
	assert.EqualError(t, err, `no recipients for message "Alert"`)
}

func TestCredentialExpiration(t *testing.T) {
	end, err := Credential{KeyID: "k", EndDateTime: "2024-06-01T10:00:00Z"}.Expiration()
	assert.NoError(t, err)
	assert.Equal(t, 2024, end.Year())

	end, err = Credential{KeyID: "k", EndDateTime: "2024-06-01T10:00:00.1234567Z"}.Expiration()
	assert.NoError(t, err)
	assert.Equal(t, 10, end.Hour())

	_, err = Credential{KeyID: "k"}.Expiration()
	assert.EqualError(t, err, "credential k has no endDateTime")

	_, err = Credential{KeyID: "k", EndDateTime: "yesterday"}.Expiration()
	assert.Error(t, err)
}

func TestOwnerName(t *testing.T) {
	var owner *Owner
	assert.Equal(t, "", owner.Name())
	assert.Equal(t, "Owner", (&Owner{DisplayName: "Owner"}).Name())
	assert.Equal(t, "owner@example.com", (&Owner{Mail: "owner@example.com", DisplayName: "Owner"}).Name())
}
