package validation

import (
	"errors"
	"regexp"
)

var (
	// ErrSecretNameEmpty indicates that a secret name is empty
	ErrSecretNameEmpty = errors.New("secret name cannot be empty")

	// ErrSecretNameTooLong indicates that a name exceeds the provider's maximum length
	ErrSecretNameTooLong = errors.New("secret name exceeds maximum length")

	// ErrInvalidSecretName indicates characters the provider does not accept
	ErrInvalidSecretName = errors.New("secret name contains invalid characters")
)

// Azure Key Vault: 1-127 alphanumerics and hyphens.
var keyVaultNameRegex = regexp.MustCompile(`^[0-9A-Za-z-]+$`)

// Secret Manager: 1-255 alphanumerics, hyphens and underscores.
var secretManagerNameRegex = regexp.MustCompile(`^[0-9A-Za-z_-]+$`)

// ValidateSecretName checks name against the naming rules of provider
// ("azure" or "gcp"). Unknown providers get the Key Vault rules, which are
// the stricter of the two.
func ValidateSecretName(provider, name string) error {
	if name == "" {
		return ErrSecretNameEmpty
	}

	maxLen, pattern := 127, keyVaultNameRegex
	if provider == "gcp" || provider == "secretmanager" {
		maxLen, pattern = 255, secretManagerNameRegex
	}

	if len(name) > maxLen {
		return ErrSecretNameTooLong
	}
	if !pattern.MatchString(name) {
		return ErrInvalidSecretName
	}
	return nil
}
