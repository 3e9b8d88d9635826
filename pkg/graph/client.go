// Package graph provides a client for the Microsoft Graph application registry and mail APIs
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/app-sre/secret-expiration-notifier/pkg/util"
	"github.com/app-sre/secret-expiration-notifier/pkg/vault"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

//go:generate mockgen -source=./client.go -destination=./mock/zz_generated.mock_client.go -package=mock

// Client is the subset of the Graph API used by integrations
type Client interface {
	ListApplications(ctx context.Context) ([]Application, error)
	GetApplicationOwner(ctx context.Context, objectID string) (*Owner, error)
	SendMail(ctx context.Context, sender string, msg *MailMessage) error
}

var _ Client = &APIClient{}

// APIClient implements Client using an OAuth2 authenticated http.Client
type APIClient struct {
	httpClient *http.Client
	config     *clientConfig
}

type clientConfig struct {
	BaseURL              string
	AuthorityURL         string
	Scope                string
	Timeout              int
	Retries              int
	TenantID             string
	ClientID             string
	ClientSecret         string
	CredentialsVaultPath string
}

func newClientConfig() *clientConfig {
	var cfg clientConfig
	sub := util.EnsureViperSub(viper.GetViper(), "graph")
	sub.SetDefault("baseurl", "https://graph.microsoft.com/v1.0")
	sub.SetDefault("authorityurl", "https://login.microsoftonline.com")
	sub.SetDefault("scope", "https://graph.microsoft.com/.default")
	sub.SetDefault("timeout", 60)
	sub.SetDefault("retries", 0)
	sub.BindEnv("baseurl", "GRAPH_API_URL")
	sub.BindEnv("authorityurl", "GRAPH_AUTHORITY_URL")
	sub.BindEnv("timeout", "GRAPH_API_TIMEOUT")
	sub.BindEnv("retries", "GRAPH_API_RETRIES")
	sub.BindEnv("tenantid", "AZURE_TENANT_ID")
	sub.BindEnv("clientid", "AZURE_CLIENT_ID")
	sub.BindEnv("clientsecret", "AZURE_CLIENT_SECRET")
	sub.BindEnv("credentialsvaultpath", "GRAPH_CREDENTIALS_VAULT_PATH")
	if err := sub.Unmarshal(&cfg); err != nil {
		util.Log().Fatalw("Error while unmarshalling configuration", "error", err.Error())
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	cfg.AuthorityURL = strings.TrimSuffix(cfg.AuthorityURL, "/")
	return &cfg
}

func (c *clientConfig) tokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.AuthorityURL, c.TenantID)
}

// resolveCredentials fills tenant, client id and secret from vault if they are not set directly
func (c *clientConfig) resolveCredentials(vc *vault.Client) error {
	if len(c.TenantID) > 0 && len(c.ClientID) > 0 && len(c.ClientSecret) > 0 {
		return nil
	}
	if len(c.CredentialsVaultPath) == 0 {
		return fmt.Errorf("graph client credentials not configured")
	}
	if vc == nil {
		return fmt.Errorf("vault client required to read graph credentials from %s", c.CredentialsVaultPath)
	}
	values, err := vc.ReadStringFields(c.CredentialsVaultPath, "tenant_id", "client_id", "client_secret")
	if err != nil {
		return errors.Wrap(err, "Error reading graph credentials from vault")
	}
	c.TenantID = values["tenant_id"]
	c.ClientID = values["client_id"]
	c.ClientSecret = values["client_secret"]
	return nil
}

// NewGraphClient creates an APIClient authenticating with the client credentials flow.
// vc may be nil if the credentials are configured directly.
// The client outlives single runs, tokens are refreshed independent of any request context.
func NewGraphClient(vc *vault.Client) (*APIClient, error) {
	cfg := newClientConfig()
	if err := cfg.resolveCredentials(vc); err != nil {
		return nil, err
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.Retries
	rc.Logger = &util.ZapLeveledLogger{Logger: util.Log()}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.tokenURL(),
		Scopes:       []string{cfg.Scope},
	}
	httpClient := cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, rc.StandardClient()))
	httpClient.Timeout = time.Duration(cfg.Timeout) * time.Second

	return &APIClient{
		httpClient: httpClient,
		config:     cfg,
	}, nil
}

func (c *APIClient) do(ctx context.Context, op, method, target string, body interface{}, expected int) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		bytesOut, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrapf(err, "error encoding %s request", op)
		}
		reader = bytes.NewReader(bytesOut)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != expected {
		return nil, &TransportError{Op: op, URL: target, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func (c *APIClient) getJSON(ctx context.Context, op, target string, value interface{}) error {
	body, err := c.do(ctx, op, http.MethodGet, target, nil, http.StatusOK)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, value); err != nil {
		return errors.Wrapf(err, "error decoding %s response", op)
	}
	return nil
}

// ListApplications returns all applications, following @odata.nextLink until the last page.
// A failing page aborts the listing, no partial result is returned.
func (c *APIClient) ListApplications(ctx context.Context) ([]Application, error) {
	query := url.Values{}
	query.Set("$select", "id,appId,displayName,identifierUris,keyCredentials,passwordCredentials")
	next := fmt.Sprintf("%s/applications?%s", c.config.BaseURL, query.Encode())

	applications := make([]Application, 0)
	seen := make(map[string]bool)
	for len(next) > 0 {
		if seen[next] {
			return nil, &TransportError{Op: "list applications", URL: next, Err: fmt.Errorf("pagination loop detected")}
		}
		seen[next] = true

		var page applicationPage
		if err := c.getJSON(ctx, "list applications", next, &page); err != nil {
			return nil, err
		}
		util.Log().Debugw("Fetched applications page", "page", len(seen), "count", len(page.Value))
		applications = append(applications, page.Value...)
		next = page.NextLink
	}
	return applications, nil
}

// GetApplicationOwner returns the first owner of the application with objectID, nil if it has none
func (c *APIClient) GetApplicationOwner(ctx context.Context, objectID string) (*Owner, error) {
	target := fmt.Sprintf("%s/applications/%s/owners?%s", c.config.BaseURL, url.PathEscape(objectID),
		url.Values{"$select": []string{"mail,displayName"}}.Encode())

	var page ownerPage
	if err := c.getJSON(ctx, "get application owners", target, &page); err != nil {
		return nil, err
	}
	if len(page.Value) == 0 {
		return nil, nil
	}
	return &page.Value[0], nil
}

// SendMail sends msg as HTML mail on behalf of sender
func (c *APIClient) SendMail(ctx context.Context, sender string, msg *MailMessage) error {
	if len(msg.Recipients) == 0 {
		return fmt.Errorf("no recipients for message %q", msg.Subject)
	}
	request := sendMailRequest{
		Message: sendMailMessage{
			Subject: msg.Subject,
			Body: itemBody{
				ContentType: "HTML",
				Content:     msg.HTMLBody,
			},
			ToRecipients: make([]recipient, 0, len(msg.Recipients)),
		},
		SaveToSentItems: true,
	}
	for _, address := range msg.Recipients {
		request.Message.ToRecipients = append(request.Message.ToRecipients, recipient{EmailAddress: emailAddress{Address: address}})
	}

	target := fmt.Sprintf("%s/users/%s/sendMail", c.config.BaseURL, url.PathEscape(sender))
	_, err := c.do(ctx, "send mail", http.MethodPost, target, request, http.StatusAccepted)
	return err
}
