package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultAPIBaseURL is the public Gemini REST endpoint.
const DefaultAPIBaseURL = "https://generativelanguage.googleapis.com"

const apiKeyHeader = "x-goog-api-key"

// HTTPTransport calls the generateContent REST method directly.
type HTTPTransport struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
	Logger  *slog.Logger
}

type restPart struct {
	Text string `json:"text"`
}

type restContent struct {
	Parts []restPart `json:"parts"`
}

type restGenerationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	Temperature      float32 `json:"temperature"`
}

type restRequest struct {
	Contents         []restContent        `json:"contents"`
	GenerationConfig restGenerationConfig `json:"generationConfig"`
}

type restResponse struct {
	Candidates []struct {
		Content restContent `json:"content"`
	} `json:"candidates"`
}

func (t *HTTPTransport) GenerateOnce(ctx context.Context, prompt string) (string, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	base := t.BaseURL
	if base == "" {
		base = DefaultAPIBaseURL
	}

	// Keep the key out of the URL; *url.Error messages include it.
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(base, "/"), url.PathEscape(t.Model))

	body, err := json.Marshal(restRequest{
		Contents:         []restContent{{Parts: []restPart{{Text: prompt}}}},
		GenerationConfig: restGenerationConfig{ResponseMIMEType: ResponseMIMEType, Temperature: Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, t.APIKey)

	reqID := uuid.New().String()
	start := time.Now()
	logger.Info("Sending generation request.", "reqId", reqID, "model", t.Model, "contentLength", len(body))

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("Generation request failed.", "reqId", reqID, "error", err, "elapsedMs", time.Since(start).Milliseconds())
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	logger.Info("Received generation response.", "reqId", reqID, "status", resp.StatusCode, "bytes", len(raw), "elapsedMs", time.Since(start).Milliseconds())

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}

	var decoded restResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	var b strings.Builder
	for _, c := range decoded.Candidates {
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
