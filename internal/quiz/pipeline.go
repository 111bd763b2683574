// Package quiz turns extracted document text into a validated, rendered quiz.
package quiz

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/quizflow/internal/generator"
	"github.com/Lllllllleong/quizflow/internal/models"
)

// PDFRenderer draws printable text into a PDF and reports the page count.
type PDFRenderer interface {
	Render(text string) ([]byte, int, error)
}

type Input struct {
	JobID      string
	SourceText string
	Model      string
	APIKey     string
}

// Output is a successful run. PDF is nil and PDFErr is a RenderingUnavailable
// error when the PDF could not be produced; the JSON artifact is still valid.
type Output struct {
	JobID         string
	Prompt        string
	Quiz          *models.QuizDocument
	CanonicalJSON []byte
	PrintableText string
	PDF           []byte
	PageCount     int
	PDFErr        error
}

// Pipeline is the generation core: prompt, generate, parse, render.
type Pipeline struct {
	transports    generator.Factory
	policy        generator.RetryPolicy
	clientOptions []generator.Option
	renderer      PDFRenderer
	logger        *slog.Logger
}

type PipelineOption func(*Pipeline)

// WithRetryPolicy overrides generator.DefaultRetryPolicy.
func WithRetryPolicy(p generator.RetryPolicy) PipelineOption {
	return func(pl *Pipeline) { pl.policy = p }
}

func WithClientOptions(opts ...generator.Option) PipelineOption {
	return func(pl *Pipeline) { pl.clientOptions = append(pl.clientOptions, opts...) }
}

func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(pl *Pipeline) { pl.logger = logger }
}

// NewPipeline binds the transport factory and the PDF renderer chosen at
// startup. A nil renderer means PDFs are unavailable for every job.
func NewPipeline(transports generator.Factory, renderer PDFRenderer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		transports: transports,
		policy:     generator.DefaultRetryPolicy(),
		renderer:   renderer,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run generates the quiz for one job. Every error it returns is a *models.Error.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Output, error) {
	jobID := strings.TrimSpace(in.JobID)
	if jobID == "" {
		return nil, models.NewError(models.KindMissingInput, "job_id is required")
	}
	if strings.TrimSpace(in.SourceText) == "" {
		return nil, models.NewError(models.KindMissingInput, "source text for job %s is empty", jobID)
	}
	if strings.TrimSpace(in.Model) == "" {
		return nil, models.NewError(models.KindMissingInput, "model name is required")
	}
	logCtx := p.logger.With("jobId", jobID, "model", in.Model)

	prompt := BuildPrompt(in.SourceText, jobID)

	transport, err := p.transports(ctx, in.Model, in.APIKey)
	if err != nil {
		logCtx.Error("No generation transport available.", "error", err)
		return nil, models.WrapError(models.KindGenerationExhausted, err, "no generation transport available")
	}
	if closer, ok := transport.(io.Closer); ok {
		defer closer.Close()
	}

	opts := append([]generator.Option{generator.WithLogger(logCtx)}, p.clientOptions...)
	raw, err := generator.NewClient(transport, p.policy, opts...).Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(raw)
	if err != nil {
		logCtx.Error("Model response rejected.", "error", err, "responseBytes", len(raw))
		return nil, err
	}

	rendered, err := Render(doc)
	if err != nil {
		return nil, models.WrapError(models.KindMalformedResponse, err, "failed to render quiz")
	}

	out := &Output{
		JobID:         jobID,
		Prompt:        prompt,
		Quiz:          doc,
		CanonicalJSON: rendered.CanonicalJSON,
		PrintableText: rendered.PrintableText,
	}

	if p.renderer == nil {
		out.PDFErr = models.NewError(models.KindRenderingUnavailable, "PDF rendering is not configured")
	} else if pdf, pages, err := p.renderer.Render(rendered.PrintableText); err != nil {
		if models.KindOf(err) == "" {
			err = models.WrapError(models.KindRenderingUnavailable, err, "failed to render PDF")
		}
		out.PDFErr = err
	} else {
		out.PDF, out.PageCount = pdf, pages
	}
	if out.PDFErr != nil {
		logCtx.Warn("PDF rendering unavailable, continuing with JSON only.", "error", out.PDFErr)
	}

	logCtx.Info("Quiz generated.", "questions", len(doc.Questions), "pdfPages", out.PageCount)
	return out, nil
}
