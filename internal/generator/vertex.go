package generator

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// VertexTransport calls the model through Vertex AI using the function's
// service account instead of an API key.
type VertexTransport struct {
	model *genai.GenerativeModel
}

// NewVertexTransport wraps a model obtained from a shared Vertex client.
func NewVertexTransport(client *genai.Client, model string) (*VertexTransport, error) {
	if client == nil {
		return nil, fmt.Errorf("vertex client is not configured")
	}
	m := client.GenerativeModel(model)
	m.ResponseMIMEType = ResponseMIMEType
	m.SetTemperature(Temperature)
	return &VertexTransport{model: m}, nil
}

func (t *VertexTransport) GenerateOnce(ctx context.Context, prompt string) (string, error) {
	resp, err := t.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("GenerateContent: %w", err)
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if text, ok := p.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
