package service

import (
	"context"
	"fmt"

	"app/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretsService resolves AI provider API keys. Keys set in the environment
// win; otherwise the key is read from GCP Secret Manager under
// <provider>-api-key.
type SecretsService interface {
	ProviderAPIKey(ctx context.Context, provider string) (string, error)
}

type secretsService struct {
	client    *secretmanager.Client
	projectID string
	overrides map[string]string
}

// NewSecretsService builds the resolver. When no GCP project is configured
// only environment keys are available; that is the local development path.
func NewSecretsService(ctx context.Context, cfg *config.Config) (SecretsService, error) {
	overrides := map[string]string{
		"openai": cfg.OpenAIAPIKey,
		"google": cfg.GeminiAPIKey,
	}

	if cfg.GCPProjectID == "" {
		return &secretsService{overrides: overrides}, nil
	}

	var opts []option.ClientOption
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &secretsService{
		client:    client,
		projectID: cfg.GCPProjectID,
		overrides: overrides,
	}, nil
}

func (s *secretsService) ProviderAPIKey(ctx context.Context, provider string) (string, error) {
	if key := s.overrides[provider]; key != "" {
		return key, nil
	}
	if s.client == nil {
		return "", fmt.Errorf("no API key configured for provider %s", provider)
	}

	resourceName := fmt.Sprintf("projects/%s/secrets/%s-api-key/versions/latest", s.projectID, provider)
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return string(result.Payload.Data), nil
}
