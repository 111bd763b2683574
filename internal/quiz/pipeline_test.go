package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/quizflow/internal/generator"
	"github.com/Lllllllleong/quizflow/internal/models"
	"github.com/Lllllllleong/quizflow/internal/pdfrender"
)

func noSleep(context.Context, time.Duration) error { return nil }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func staticFactory(tr generator.Transport) generator.Factory {
	return func(context.Context, string, string) (generator.Transport, error) { return tr, nil }
}

func newTestPipeline(f generator.Factory, r PDFRenderer) *Pipeline {
	return NewPipeline(f, r, WithClientOptions(generator.WithSleep(noSleep)), WithPipelineLogger(quiet()))
}

// geminiStub answers generateContent with body wrapped in a json fence.
func geminiStub(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": "```json\n" + body + "\n```"}}},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPipelineEndToEnd(t *testing.T) {
	srv := geminiStub(t, loadValidQuiz(t))
	factory, name := generator.SelectTransport(generator.TransportConfig{APIBaseURL: srv.URL, HTTPClient: srv.Client(), Logger: quiet()})
	require.Equal(t, "http", name)

	p := newTestPipeline(factory, pdfrender.NewRenderer(pdfrender.DefaultConfig()))
	out, err := p.Run(context.Background(), Input{
		JobID:      "abc123",
		SourceText: "The capital of France is Paris.",
		Model:      "gemini-1.5-flash",
		APIKey:     "test-key",
	})
	require.NoError(t, err)

	assert.Equal(t, "abc123", out.JobID)
	assert.Contains(t, out.Prompt, "JOB_ID: abc123")
	assert.Contains(t, out.Prompt, "The capital of France is Paris.")

	assert.True(t, strings.HasPrefix(string(out.CanonicalJSON), "{\n  \"title\":"))
	var decoded struct {
		Title     string            `json:"title"`
		Questions []json.RawMessage `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(out.CanonicalJSON, &decoded))
	assert.Len(t, decoded.Questions, 10)

	require.NoError(t, out.PDFErr)
	assert.True(t, bytes.HasPrefix(out.PDF, []byte("%PDF-")))
	assert.GreaterOrEqual(t, out.PageCount, 1)
}

func TestPipelineMissingInput(t *testing.T) {
	p := newTestPipeline(staticFactory(generator.TransportFunc(func(context.Context, string) (string, error) {
		t.Fatal("transport must not be called")
		return "", nil
	})), nil)

	for name, in := range map[string]Input{
		"no job id":      {SourceText: "text", Model: "m"},
		"blank source":   {JobID: "abc", SourceText: " \n\t", Model: "m"},
		"no model":       {JobID: "abc", SourceText: "text"},
		"blank job id":   {JobID: "   ", SourceText: "text", Model: "m"},
		"everything off": {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := p.Run(context.Background(), in)
			assert.Equal(t, models.KindMissingInput, models.KindOf(err))
		})
	}
}

func TestPipelinePropagatesClassifiedFailures(t *testing.T) {
	in := Input{JobID: "abc123", SourceText: "text", Model: "m"}

	t.Run("exhausted", func(t *testing.T) {
		calls := 0
		p := newTestPipeline(staticFactory(generator.TransportFunc(func(context.Context, string) (string, error) {
			calls++
			return "", errors.New("unavailable")
		})), nil)
		_, err := p.Run(context.Background(), in)
		assert.Equal(t, models.KindGenerationExhausted, models.KindOf(err))
		assert.Equal(t, generator.DefaultMaxAttempts, calls)
	})

	t.Run("malformed", func(t *testing.T) {
		p := newTestPipeline(staticFactory(generator.TransportFunc(func(context.Context, string) (string, error) {
			return "I cannot help with that.", nil
		})), nil)
		_, err := p.Run(context.Background(), in)
		assert.Equal(t, models.KindMalformedResponse, models.KindOf(err))
	})

	t.Run("schema", func(t *testing.T) {
		body := mutateQuiz(t, func(doc map[string]any) { delete(question(doc, 0), "correctAnswer") })
		p := newTestPipeline(staticFactory(generator.TransportFunc(func(context.Context, string) (string, error) {
			return body, nil
		})), nil)
		_, err := p.Run(context.Background(), in)
		assert.Equal(t, models.KindSchemaViolation, models.KindOf(err))
	})

	t.Run("no transport", func(t *testing.T) {
		p := newTestPipeline(func(context.Context, string, string) (generator.Transport, error) {
			return nil, errors.New("vertex client is not configured")
		}, nil)
		_, err := p.Run(context.Background(), in)
		assert.Equal(t, models.KindGenerationExhausted, models.KindOf(err))
	})
}

type failingRenderer struct{}

func (failingRenderer) Render(string) ([]byte, int, error) {
	return nil, 0, errors.New("font cache missing")
}

func TestPipelineDegradesWithoutPDF(t *testing.T) {
	body := loadValidQuiz(t)
	tr := generator.TransportFunc(func(context.Context, string) (string, error) { return body, nil })
	in := Input{JobID: "abc123", SourceText: "text", Model: "m"}

	for name, r := range map[string]PDFRenderer{"nil renderer": nil, "failing renderer": failingRenderer{}} {
		t.Run(name, func(t *testing.T) {
			out, err := newTestPipeline(staticFactory(tr), r).Run(context.Background(), in)
			require.NoError(t, err)
			assert.NotEmpty(t, out.CanonicalJSON)
			assert.Nil(t, out.PDF)
			assert.Equal(t, models.KindRenderingUnavailable, models.KindOf(out.PDFErr))
		})
	}
}

type closingTransport struct {
	generator.TransportFunc
	closed bool
}

func (c *closingTransport) Close() error {
	c.closed = true
	return nil
}

func TestPipelineClosesTransport(t *testing.T) {
	body := loadValidQuiz(t)
	tr := &closingTransport{TransportFunc: func(context.Context, string) (string, error) { return body, nil }}

	_, err := newTestPipeline(staticFactory(tr), nil).Run(context.Background(), Input{JobID: "j", SourceText: "t", Model: "m"})
	require.NoError(t, err)
	assert.True(t, tr.closed)
}
