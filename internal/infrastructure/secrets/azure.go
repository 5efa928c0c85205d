package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"usersvc/internal/infrastructure/validation"
)

// azureGetter is the subset of *azsecrets.Client used here.
type azureGetter interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureKeyVault reads secrets from an Azure Key Vault using the ambient
// credential chain (managed identity, workload identity, az cli, ...).
type AzureKeyVault struct {
	vaultURL string
	client   azureGetter
}

// NewAzureKeyVault creates a Key Vault store for vaultURL.
func NewAzureKeyVault(vaultURL string) (*AzureKeyVault, error) {
	if vaultURL == "" {
		return nil, fmt.Errorf("azure key vault: vault URL is required")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure key vault: credential: %w", err)
	}
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure key vault: client: %w", err)
	}
	return &AzureKeyVault{vaultURL: vaultURL, client: client}, nil
}

// GetSecret fetches the latest version of name.
func (v *AzureKeyVault) GetSecret(ctx context.Context, name string) (string, error) {
	if err := validation.ValidateSecretName("azure", name); err != nil {
		return "", fmt.Errorf("secret %q: %w", name, err)
	}
	resp, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	if resp.Value == nil || *resp.Value == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, name)
	}
	return *resp.Value, nil
}

func (v *AzureKeyVault) Name() string { return "azure-keyvault(" + v.vaultURL + ")" }

func (v *AzureKeyVault) Close() error { return nil }
