package aws

import (
	"fmt"
	"os"

	"github.com/app-sre/secret-expiration-notifier/pkg/vault"
	"github.com/pkg/errors"
)

// Credentials are static AWS credentials
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	DefaultRegion   string
}

func getCredentialsFromEnv() *Credentials {
	if len(os.Getenv("AWS_ACCESS_KEY_ID")) != 0 && len(os.Getenv("AWS_SECRET_ACCESS_KEY")) != 0 {
		return &Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			DefaultRegion:   os.Getenv("AWS_REGION"),
		}
	}
	return nil
}

func getCredentialsFromVault(vc *vault.Client, path string) (*Credentials, error) {
	values, err := vc.ReadStringFields(path, "aws_access_key_id", "aws_secret_access_key")
	if err != nil {
		return nil, errors.Wrap(err, "Error reading automation token")
	}
	return &Credentials{
		AccessKeyID:     values["aws_access_key_id"],
		SecretAccessKey: values["aws_secret_access_key"],
		DefaultRegion:   newAwsClientConfig().Region,
	}, nil
}

// GetAwsCredentials returns credentials from the environment or, if missing, from vault
func GetAwsCredentials(vc *vault.Client) (*Credentials, error) {
	secretsFromEnv := getCredentialsFromEnv()
	if secretsFromEnv != nil {
		return secretsFromEnv, nil
	}

	path := newAwsClientConfig().CredentialsVaultPath
	if len(path) == 0 {
		return nil, fmt.Errorf("no AWS credentials in environment and no vault path configured")
	}
	if vc == nil {
		return nil, fmt.Errorf("vault client required to read AWS credentials from %s", path)
	}
	return getCredentialsFromVault(vc, path)
}
