// Package secrets adapts managed secret stores (Azure Key Vault, Google
// Secret Manager) to a single lookup-by-name interface.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"usersvc/internal/config"
)

var (
	// ErrSecretNotFound is returned when the store has no secret with the given name.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrEmptySecret is returned when the secret exists but holds no value.
	ErrEmptySecret = errors.New("secret is empty")
	// ErrUnknownProvider is returned by Open for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown secrets provider")
)

// Store resolves secrets by name. Implementations must be safe for concurrent use.
type Store interface {
	// GetSecret returns the latest value of the named secret.
	GetSecret(ctx context.Context, name string) (string, error)

	// Name identifies the backend in logs. Never includes secret material.
	Name() string

	// Close releases the underlying client.
	Close() error
}

// Open builds the store selected by cfg.Provider. No network call is made.
func Open(ctx context.Context, cfg config.SecretsConfig) (Store, error) {
	switch strings.ToLower(cfg.Provider) {
	case "azure", "keyvault", "":
		return NewAzureKeyVault(cfg.VaultURL)
	case "gcp", "secretmanager":
		return NewGCPSecretManager(ctx, cfg.GCPProject)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
