package generator

import (
	"context"
	"log/slog"
	"net/http"

	vertexgenai "cloud.google.com/go/vertexai/genai"
)

// Factory builds a Transport for one job.
type Factory func(ctx context.Context, model, apiKey string) (Transport, error)

// TransportConfig describes what the running instance has available.
type TransportConfig struct {
	// Vertex is set when the deployment names a Vertex AI project.
	Vertex *vertexgenai.Client
	// APIBaseURL overrides the public REST endpoint. The SDK cannot target a
	// custom endpoint, so setting it selects the raw HTTP transport.
	APIBaseURL string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// SelectTransport decides once which transport the instance uses. Vertex wins
// when configured. Otherwise the SDK is used, falling back to raw HTTP for a
// job whose SDK client cannot be created.
func SelectTransport(cfg TransportConfig) (Factory, string) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newHTTP := func(model, apiKey string) *HTTPTransport {
		return &HTTPTransport{BaseURL: cfg.APIBaseURL, Model: model, APIKey: apiKey, Client: cfg.HTTPClient, Logger: logger}
	}

	switch {
	case cfg.Vertex != nil:
		return func(ctx context.Context, model, _ string) (Transport, error) {
			return NewVertexTransport(cfg.Vertex, model)
		}, "vertex"
	case cfg.APIBaseURL != "":
		return func(ctx context.Context, model, apiKey string) (Transport, error) {
			return newHTTP(model, apiKey), nil
		}, "http"
	default:
		return func(ctx context.Context, model, apiKey string) (Transport, error) {
			t, err := NewSDKTransport(ctx, model, apiKey)
			if err != nil {
				logger.Warn("SDK transport unavailable, using raw HTTP.", "model", model, "error", err)
				return newHTTP(model, apiKey), nil
			}
			return t, nil
		}, "sdk"
	}
}
