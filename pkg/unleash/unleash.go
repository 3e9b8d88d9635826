// Package unleash queries feature toggles used to enable or disable integrations
package unleash

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/app-sre/secret-expiration-notifier/pkg/util"
	"github.com/pkg/errors"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Not using github.com/Unleash/unleash-client-go/v3
// Only a single feature lookup per run is needed

type unleashConfig struct {
	Timeout           int
	APIURL            string
	ClientAccessToken string
}

// Client reads feature toggles from the unleash client API
type Client struct {
	Client        *http.Client
	unleashConfig *unleashConfig
}

func newUnleashConfig() *unleashConfig {
	sub := util.EnsureViperSub(viper.GetViper(), "unleash")
	var c unleashConfig

	sub.SetDefault("timeout", 60)

	sub.BindEnv("timeout", "UNLEASH_TIMEOUT")
	sub.BindEnv("apiurl", "UNLEASH_API_URL")
	sub.BindEnv("clientaccesstoken", "UNLEASH_CLIENT_ACCESS_TOKEN")

	if err := sub.Unmarshal(&c); err != nil {
		util.Log().Fatalw("Error while unmarshalling configuration", "error", err.Error())
	}

	return &c
}

// NewUnleashClient creates a Client from the unleash configuration section
func NewUnleashClient() (*Client, error) {
	c := newUnleashConfig()
	if len(c.APIURL) == 0 {
		return nil, fmt.Errorf("unleash api url not configured")
	}

	return &Client{
		Client: &http.Client{
			Timeout: time.Duration(c.Timeout) * time.Second,
			Transport: &util.AuthedTransport{
				Key:     fmt.Sprintf("Bearer %s", c.ClientAccessToken),
				Wrapped: http.DefaultTransport,
			},
		},
		unleashConfig: c,
	}, nil
}

// GetFeature returns the feature toggle called name
func (c *Client) GetFeature(ctx context.Context, name string) (*Feature, error) {
	util.Log().Debugw("Checking if feature is enabled", "feature", name)
	path := fmt.Sprintf("%s/client/features/%s", c.unleashConfig.APIURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting feature %s", name)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d getting feature %s", resp.StatusCode, name)
	}

	var feature Feature
	err = yaml.Unmarshal(body, &feature)
	if err != nil {
		return nil, errors.Wrapf(err, "error decoding feature %s", name)
	}
	return &feature, nil
}
