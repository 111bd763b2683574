package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// SDKTransport calls the model through the Gemini Go SDK.
type SDKTransport struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewSDKTransport builds an SDK-backed transport for model. It fails when the
// SDK cannot create a client, e.g. without a usable API key.
func NewSDKTransport(ctx context.Context, model, apiKey string, opts ...option.ClientOption) (*SDKTransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("an API key is required for the SDK transport")
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	m := client.GenerativeModel(model)
	m.ResponseMIMEType = ResponseMIMEType
	m.SetTemperature(Temperature)
	return &SDKTransport{client: client, model: m}, nil
}

func (t *SDKTransport) GenerateOnce(ctx context.Context, prompt string) (string, error) {
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

func (t *SDKTransport) Close() error {
	return t.client.Close()
}
