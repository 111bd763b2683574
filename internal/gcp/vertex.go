package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// NewVertexClient creates the Vertex AI client shared by every job on this
// instance. It authenticates with the function's service account.
func NewVertexClient(ctx context.Context, projectID, region string) (*genai.Client, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return client, nil
}
