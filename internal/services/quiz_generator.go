package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/quizflow/internal/gcp"
	"github.com/Lllllllleong/quizflow/internal/generator"
	"github.com/Lllllllleong/quizflow/internal/jobid"
	"github.com/Lllllllleong/quizflow/internal/models"
	"github.com/Lllllllleong/quizflow/internal/pdfrender"
	"github.com/Lllllllleong/quizflow/internal/quiz"
)

// Parameter names shared by the pipeline stages.
const (
	ParamInputFolder = "ai-quiz.pdf-extract.input-folder"
	ParamTextFolder  = "ai-quiz.pdf-extract.text-output-folder"
	ParamQuizFolder  = "ai-quiz.gen-quiz.quiz-output-folder"
	ParamModel       = "ai-quiz.gen-quiz.gemini-model"
)

// Artifact names inside a job folder.
const (
	SourceTextFile = "data.txt"
	PromptFile     = "prompt.txt"
	QuizJSONFile   = "quiz.json"
	QuizPDFFile    = "quiz.pdf"
)

// QuizGeneratorConfig holds all configuration for the quiz generator service.
type QuizGeneratorConfig struct {
	ProjectID string
	// DefaultBucket resolves folder parameters that are bare prefixes.
	DefaultBucket   string
	SecretName      string
	TextFolderParam string
	QuizFolderParam string
	ModelParam      string
}

// QuizGeneratorFunction holds the collaborators of the generation stage.
type QuizGeneratorFunction struct {
	objects  gcp.ObjectStore
	params   gcp.ParameterStore
	secrets  gcp.SecretStore
	jobs     gcp.JobStore
	pipeline *quiz.Pipeline
	config   QuizGeneratorConfig
}

// QuizGeneratorDeps are the collaborators NewQuizGeneratorWith binds.
type QuizGeneratorDeps struct {
	Objects  gcp.ObjectStore
	Params   gcp.ParameterStore
	Secrets  gcp.SecretStore
	Jobs     gcp.JobStore
	Pipeline *quiz.Pipeline
}

// loadQuizGeneratorConfig loads and validates the environment for this service.
func loadQuizGeneratorConfig() (*QuizGeneratorConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	bucket := gcp.GetEnv("QUIZ_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("QUIZ_BUCKET environment variable must be set")
	}
	return &QuizGeneratorConfig{
		ProjectID:       projectID,
		DefaultBucket:   bucket,
		SecretName:      gcp.GetEnv("GEMINI_SECRET_NAME", "ai-quiz-gen-quiz-gemini-api-key"),
		TextFolderParam: gcp.GetEnv("TEXT_FOLDER_PARAM", ParamTextFolder),
		QuizFolderParam: gcp.GetEnv("QUIZ_FOLDER_PARAM", ParamQuizFolder),
		ModelParam:      gcp.GetEnv("MODEL_PARAM", ParamModel),
	}, nil
}

// loadRetryPolicy applies GEMINI_MAX_ATTEMPTS and GEMINI_TIMEOUT to the defaults.
func loadRetryPolicy() (generator.RetryPolicy, error) {
	policy := generator.DefaultRetryPolicy()
	if v := gcp.GetEnv("GEMINI_MAX_ATTEMPTS", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return policy, fmt.Errorf("GEMINI_MAX_ATTEMPTS must be a positive integer, got %q", v)
		}
		policy.MaxAttempts = n
	}
	if v := gcp.GetEnv("GEMINI_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return policy, fmt.Errorf("GEMINI_TIMEOUT must be a positive duration, got %q", v)
		}
		policy.Timeout = d
	}
	return policy, nil
}

// NewQuizGenerator creates the service from the environment. The generation
// transport and the PDF renderer are chosen here, once per instance.
func NewQuizGenerator(ctx context.Context) (*QuizGeneratorFunction, error) {
	config, err := loadQuizGeneratorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	policy, err := loadRetryPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	secrets, err := gcp.NewSecretManagerStore(ctx, config.ProjectID)
	if err != nil {
		return nil, err
	}

	transportCfg := generator.TransportConfig{APIBaseURL: gcp.GetEnv("GEMINI_API_BASE_URL", "")}
	if vertexProject := gcp.GetEnv("VERTEX_PROJECT_ID", ""); vertexProject != "" {
		transportCfg.Vertex, err = gcp.NewVertexClient(ctx, vertexProject, gcp.GetEnv("VERTEX_AI_REGION", "us-central1"))
		if err != nil {
			return nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
	}
	transports, transportName := generator.SelectTransport(transportCfg)

	var renderer quiz.PDFRenderer
	if gcp.GetEnv("PDF_RENDERING", "enabled") != "disabled" {
		renderer = pdfrender.NewRenderer(pdfrender.DefaultConfig())
	}

	f := NewQuizGeneratorWith(QuizGeneratorDeps{
		Objects:  gcp.NewGCSStore(storageClient),
		Params:   gcp.NewFirestoreParameters(firestoreClient, gcp.GetEnv("PARAMETER_COLLECTION", "parameters")),
		Secrets:  secrets,
		Jobs:     gcp.NewFirestoreJobs(firestoreClient, gcp.GetEnv("JOB_COLLECTION", "quizJobs")),
		Pipeline: quiz.NewPipeline(transports, renderer, quiz.WithRetryPolicy(policy)),
	}, *config)
	slog.Info("Quiz generator initialized.",
		"transport", transportName,
		"maxAttempts", policy.MaxAttempts,
		"timeout", policy.Timeout.String(),
		"pdfRendering", renderer != nil,
	)
	return f, nil
}

func NewQuizGeneratorWith(deps QuizGeneratorDeps, config QuizGeneratorConfig) *QuizGeneratorFunction {
	return &QuizGeneratorFunction{
		objects:  deps.Objects,
		params:   deps.Params,
		secrets:  deps.Secrets,
		jobs:     deps.Jobs,
		pipeline: deps.Pipeline,
		config:   config,
	}
}

// JobIDFromRequest prefers detail.jobId and falls back to job_id.
func JobIDFromRequest(req *models.QuizRequest) string {
	if req == nil {
		return ""
	}
	if req.Detail != nil {
		if id := strings.TrimSpace(req.Detail.JobID); id != "" {
			return id
		}
	}
	return strings.TrimSpace(req.JobID)
}

// Process generates and stores the quiz for one job. The result is never nil;
// on failure it carries the error kind and message and the error is a
// *models.Error.
func (f *QuizGeneratorFunction) Process(ctx context.Context, req *models.QuizRequest) (*models.QuizResult, error) {
	jobID := JobIDFromRequest(req)
	if jobID == "" {
		return f.fail(ctx, slog.Default(), "", "", models.NewError(models.KindMissingInput, "job_id is required (detail.jobId or job_id)"))
	}
	// Ids not derived by the extractor still run; the flag makes them easy to find.
	logCtx := slog.With("jobId", jobID, "derivedJobId", jobid.Valid(jobID))
	logCtx.Info("Starting quiz generation.")

	textFolder, err := f.params.Get(ctx, f.config.TextFolderParam)
	if err != nil {
		return f.fail(ctx, logCtx, jobID, "", upstream(err, "failed to read text folder parameter"))
	}
	quizFolder, err := f.params.Get(ctx, f.config.QuizFolderParam)
	if err != nil {
		return f.fail(ctx, logCtx, jobID, "", upstream(err, "failed to read quiz folder parameter"))
	}
	modelName, err := f.params.Get(ctx, f.config.ModelParam)
	if err != nil {
		return f.fail(ctx, logCtx, jobID, "", upstream(err, "failed to read model parameter"))
	}
	textLoc, err := gcp.ParseLocation(textFolder, f.config.DefaultBucket)
	if err != nil {
		return f.fail(ctx, logCtx, jobID, modelName, upstream(err, "invalid text folder"))
	}
	quizLoc, err := gcp.ParseLocation(quizFolder, f.config.DefaultBucket)
	if err != nil {
		return f.fail(ctx, logCtx, jobID, modelName, upstream(err, "invalid quiz folder"))
	}
	logCtx = logCtx.With("model", modelName)

	input := models.ObjectRef{Bucket: textLoc.Bucket, Key: textLoc.Key(jobID + "/" + SourceTextFile)}
	info, err := f.objects.Head(ctx, input.Bucket, input.Key)
	if err != nil {
		return f.fail(ctx, logCtx, jobID, modelName, upstream(err, "failed to check source text"))
	}
	if !info.Exists {
		return f.fail(ctx, logCtx, jobID, modelName, models.NewError(models.KindMissingInput, "source text gs://%s/%s does not exist", input.Bucket, input.Key))
	}
	data, err := f.objects.Get(ctx, input.Bucket, input.Key)
	if err != nil {
		return f.fail(ctx, logCtx, jobID, modelName, upstream(err, "failed to read source text"))
	}
	apiKey, err := f.secrets.Get(ctx, f.config.SecretName)
	if err != nil {
		return f.fail(ctx, logCtx, jobID, modelName, upstream(err, "failed to read model API key"))
	}

	if err := f.jobs.UpdateStatus(ctx, jobID, models.StatusGenerating, map[string]any{"model": modelName}); err != nil {
		logCtx.Warn("Failed to record GENERATING status.", "error", err)
	}

	out, err := f.pipeline.Run(ctx, quiz.Input{
		JobID:      jobID,
		SourceText: strings.ToValidUTF8(string(data), ""),
		Model:      modelName,
		APIKey:     apiKey,
	})
	if err != nil {
		return f.fail(ctx, logCtx, jobID, modelName, err)
	}

	result := &models.QuizResult{
		Status: "ok",
		JobID:  jobID,
		Input:  &input,
		Output: &models.QuizOutputs{
			JSON: models.ObjectRef{Bucket: quizLoc.Bucket, Key: quizLoc.Key(jobID + "/" + QuizJSONFile)},
			PDF:  models.PDFObjectRef{Bucket: quizLoc.Bucket, Key: quizLoc.Key(jobID + "/" + QuizPDFFile)},
		},
		Model: modelName,
	}
	pdfSaved, err := f.persist(ctx, logCtx, quizLoc, jobID, out, result.Output)
	if err != nil {
		return f.fail(ctx, logCtx, jobID, modelName, upstream(err, "failed to store quiz"))
	}
	result.Output.PDF.Saved = pdfSaved

	completed := map[string]any{"pdfSaved": pdfSaved, "pageCount": out.PageCount, "errorKind": "", "errorDetails": ""}
	if out.PDFErr != nil {
		completed["errorKind"] = string(models.KindOf(out.PDFErr))
		completed["errorDetails"] = out.PDFErr.Error()
	}
	if err := f.jobs.UpdateStatus(ctx, jobID, models.StatusCompleted, completed); err != nil {
		logCtx.Warn("Failed to record COMPLETED status.", "error", err)
	}
	logCtx.Info("Quiz generation complete.", "json", result.Output.JSON.Key, "pdfSaved", pdfSaved)
	return result, nil
}

// persist uploads the prompt, the quiz JSON and the PDF concurrently. Only the
// PDF may fail without failing the job; its outcome is the returned flag.
func (f *QuizGeneratorFunction) persist(ctx context.Context, logCtx *slog.Logger, loc gcp.Location, jobID string, out *quiz.Output, refs *models.QuizOutputs) (bool, error) {
	pdfSaved := false
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(3)

	eg.Go(func() error {
		return f.objects.Put(gctx, loc.Bucket, loc.Key(jobID+"/"+PromptFile), []byte(out.Prompt), "text/plain; charset=utf-8")
	})
	eg.Go(func() error {
		return f.objects.Put(gctx, refs.JSON.Bucket, refs.JSON.Key, out.CanonicalJSON, "application/json; charset=utf-8")
	})
	if out.PDF != nil {
		eg.Go(func() error {
			if err := f.objects.Put(gctx, refs.PDF.Bucket, refs.PDF.Key, out.PDF, "application/pdf"); err != nil {
				logCtx.Warn("Failed to store quiz PDF, continuing without it.", "error", err)
				return nil
			}
			pdfSaved = true
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return false, err
	}
	return pdfSaved, nil
}

// fail logs err, records the failure on the job when one exists and builds the
// error result.
func (f *QuizGeneratorFunction) fail(ctx context.Context, logCtx *slog.Logger, jobID, modelName string, err error) (*models.QuizResult, error) {
	var perr *models.Error
	if !errors.As(err, &perr) {
		perr = models.WrapError(models.KindUpstreamUnavailable, err, "unexpected failure")
	}
	logCtx.Error("Quiz generation failed.", "kind", perr.Kind, "error", perr)

	if jobID != "" && perr.Kind != models.KindMissingInput {
		fields := map[string]any{"errorKind": string(perr.Kind), "errorDetails": perr.Error()}
		if uerr := f.jobs.UpdateStatus(ctx, jobID, models.StatusFailed, fields); uerr != nil {
			logCtx.Error("CRITICAL: Failed to update job status to FAILED after a processing error.", "updateError", uerr)
		}
	}
	return &models.QuizResult{
		Status: "error",
		JobID:  jobID,
		Model:  modelName,
		Kind:   perr.Kind,
		Error:  perr.Error(),
	}, perr
}

func upstream(err error, message string) error {
	return models.WrapError(models.KindUpstreamUnavailable, err, "%s", message)
}
