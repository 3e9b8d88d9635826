// Package vault wraps the hashicorp vault api client
package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/app-sre/secret-expiration-notifier/pkg/util"
	"github.com/hashicorp/vault/api"
	"github.com/hashicorp/vault/api/auth/approle"
	"github.com/hashicorp/vault/api/auth/kubernetes"

	"github.com/spf13/viper"
)

// Client is an abstraction to github.com/hashicorp/vault/api
type Client struct {
	client *api.Client
	config *vaultConfig
}

type vaultConfig struct {
	Server        string
	AuthType      string
	Token         string
	RoleID        string `mapstructure:"role_id"`
	SecretID      string `mapstructure:"secret_id"`
	KubeRole      string `mapstructure:"kube_auth_role"`
	KubeMount     string `mapstructure:"kube_auth_mount"`
	KubeTokenPath string `mapstructure:"kube_sa_token_path"`
	Timeout       int
}

func newVaultConfig() *vaultConfig {
	var vc vaultConfig
	sub := util.EnsureViperSub(viper.GetViper(), "vault")
	sub.SetDefault("timeout", 60)
	sub.SetDefault("authtype", "approle")
	sub.SetDefault("kube_sa_token_path", "/var/run/secrets/kubernetes.io/serviceaccount/token")
	sub.BindEnv("server", "VAULT_SERVER")
	sub.BindEnv("authtype", "VAULT_AUTHTYPE")
	sub.BindEnv("token", "VAULT_TOKEN")
	sub.BindEnv("role_id", "VAULT_ROLE_ID")
	sub.BindEnv("secret_id", "VAULT_SECRET_ID")
	sub.BindEnv("kube_auth_role", "VAULT_KUBE_AUTH_ROLE")
	sub.BindEnv("kube_auth_mount", "VAULT_KUBE_AUTH_MOUNT")
	sub.BindEnv("kube_sa_token_path", "VAULT_KUBE_SA_TOKEN_PATH")
	sub.BindEnv("timeout", "VAULT_TIMEOUT")
	if err := sub.Unmarshal(&vc); err != nil {
		util.Log().Fatalw("Error while unmarshalling configuration", "error", err.Error())
	}
	return &vc
}

// Enabled tells whether a vault server is configured
func Enabled() bool {
	return len(newVaultConfig().Server) > 0
}

// NewVaultClient creates a new Client from the vault configuration section
func NewVaultClient() (*Client, error) {
	vc := newVaultConfig()
	vaultClient := &Client{
		config: vc,
	}
	vaultCFG := api.DefaultConfig()
	vaultCFG.Address = vc.Server
	vaultCFG.Timeout = time.Duration(vc.Timeout) * time.Second

	tmpClient, err := api.NewClient(vaultCFG)
	if err != nil {
		return nil, err
	}
	vaultClient.client = tmpClient

	switch vc.AuthType {
	case "approle":
		appRoleAuth, err := approle.NewAppRoleAuth(
			vc.RoleID,
			&approle.SecretID{FromString: vc.SecretID})
		if err != nil {
			return nil, err
		}
		_, err = vaultClient.client.Auth().Login(context.Background(), appRoleAuth)
		if err != nil {
			return nil, err
		}

	case "token":
		vaultClient.client.SetToken(vc.Token)

	case "kubernetes":
		kubeAuth, err := kubernetes.NewKubernetesAuth(
			vc.KubeRole,
			kubernetes.WithServiceAccountTokenPath(vc.KubeTokenPath),
			kubernetes.WithMountPath(vc.KubeMount),
		)
		if err != nil {
			return nil, err
		}
		_, err = vaultClient.client.Auth().Login(context.Background(), kubeAuth)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported authentication type \"%s\"", vc.AuthType)
	}

	return vaultClient, nil
}

// ReadSecret do a logical read on a given Secret Path
func (v *Client) ReadSecret(secretPath string) (*api.Secret, error) {
	return v.client.Logical().Read(secretPath)
}

// ReadStringFields reads secretPath and returns the requested fields as strings.
// Missing secrets, missing fields and non string values are errors.
func (v *Client) ReadStringFields(secretPath string, fields ...string) (map[string]string, error) {
	secret, err := v.ReadSecret(secretPath)
	if err != nil {
		return nil, err
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret %s not found", secretPath)
	}
	values := make(map[string]string, len(fields))
	for _, field := range fields {
		value, ok := secret.Data[field].(string)
		if !ok {
			return nil, fmt.Errorf("field %s missing in secret %s", field, secretPath)
		}
		values[field] = value
	}
	return values, nil
}
