package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SecretStore resolves the model API key from a named secret.
type SecretStore interface {
	Get(ctx context.Context, name string) (string, error)
}

// SecretManagerStore reads the latest version of a secret whose payload is a
// JSON object with an "apiKey" field.
type SecretManagerStore struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretManagerStore(ctx context.Context, projectID string) (*SecretManagerStore, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &SecretManagerStore{client: client, projectID: projectID}, nil
}

func (s *SecretManagerStore) Get(ctx context.Context, name string) (string, error) {
	resource := name
	if !strings.HasPrefix(name, "projects/") {
		resource = fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)
	}
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", name, err)
	}
	return APIKeyFromPayload(resp.GetPayload().GetData())
}

func (s *SecretManagerStore) Close() error {
	return s.client.Close()
}

// APIKeyFromPayload extracts the non-empty "apiKey" field of a secret payload.
func APIKeyFromPayload(payload []byte) (string, error) {
	var secret struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.Unmarshal(payload, &secret); err != nil {
		return "", fmt.Errorf("secret payload is not a JSON object: %w", err)
	}
	key := strings.TrimSpace(secret.APIKey)
	if key == "" {
		return "", fmt.Errorf("secret payload has no apiKey")
	}
	return key, nil
}
