package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/keyvault/azsecrets"
	"github.com/sirupsen/logrus"
)

// AzureResolver reads secrets from an Azure Key Vault. References are secret
// names; the latest version is used.
type AzureResolver struct {
	get    func(ctx context.Context, name string) (string, error)
	logger *logrus.Logger
}

// NewAzureResolver creates a Key Vault client authenticated with the default
// Azure credential chain.
func NewAzureResolver(vaultURL string, logger *logrus.Logger) (*AzureResolver, error) {
	if vaultURL == "" {
		return nil, errors.New("AZURE_KEYVAULT_URL is required for azure-kv references")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure credential: %w", err)
	}
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create key vault client: %w", err)
	}
	get := func(ctx context.Context, name string) (string, error) {
		resp, err := client.GetSecret(ctx, name, "", nil)
		if err != nil {
			return "", err
		}
		if resp.Value == nil {
			return "", fmt.Errorf("secret %s has no value", name)
		}
		return *resp.Value, nil
	}
	return &AzureResolver{get: get, logger: logger}, nil
}

// Resolve returns the current value of the named secret.
func (a *AzureResolver) Resolve(ctx context.Context, ref string) (string, error) {
	a.logger.WithFields(logrus.Fields{
		"provider":    "azure",
		"secret_name": ref,
	}).Debug("Fetching key vault secret")
	value, err := a.get(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("failed to get key vault secret: %w", err)
	}
	return value, nil
}

// Close is a no-op; the key vault client holds no connections.
func (a *AzureResolver) Close() error {
	return nil
}
