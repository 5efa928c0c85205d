package secrets

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"usersvc/internal/infrastructure/validation"
)

// GCPSecretManager reads secrets from Google Secret Manager using
// application default credentials.
type GCPSecretManager struct {
	project string
	client  *secretmanager.Client
}

// NewGCPSecretManager creates a Secret Manager store for project.
func NewGCPSecretManager(ctx context.Context, project string) (*GCPSecretManager, error) {
	if project == "" {
		return nil, fmt.Errorf("secret manager: project is required")
	}
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secret manager: client: %w", err)
	}
	return &GCPSecretManager{project: project, client: client}, nil
}

// GetSecret accesses the latest enabled version of name.
func (s *GCPSecretManager) GetSecret(ctx context.Context, name string) (string, error) {
	if err := validation.ValidateSecretName("gcp", name); err != nil {
		return "", fmt.Errorf("secret %q: %w", name, err)
	}
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretVersionName(s.project, name),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	data := resp.GetPayload().GetData()
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, name)
	}
	return string(data), nil
}

func (s *GCPSecretManager) Name() string { return "gcp-secretmanager(" + s.project + ")" }

func (s *GCPSecretManager) Close() error { return s.client.Close() }

func secretVersionName(project, name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, name)
}
