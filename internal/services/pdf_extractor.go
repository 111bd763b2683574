package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/quizflow/internal/extract"
	"github.com/Lllllllleong/quizflow/internal/gcp"
	"github.com/Lllllllleong/quizflow/internal/jobid"
	"github.com/Lllllllleong/quizflow/internal/models"
)

// Event published when a job's text is ready.
const (
	ExtractEventSource     = "ai-quiz.pdf-extract"
	ExtractEventDetailType = "pdf-extract-finished"
)

// GCSEvent is the data of a storage object finalized CloudEvent.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ExtractorObjects is the storage surface of the extraction stage.
type ExtractorObjects interface {
	gcp.ObjectStore
	Download(ctx context.Context, bucket, key, destPath string) error
	SetMetadata(ctx context.Context, bucket, key string, metadata map[string]string) error
	CreateIfAbsent(ctx context.Context, bucket, key string, data []byte) error
}

// PDFInspector validates the PDF at src, may write a cleaned copy into
// workDir, and returns the path to read text from plus its page count.
type PDFInspector func(src, workDir string) (string, int, error)

// TextExtractor returns the sanitized text of the PDF at path.
type TextExtractor func(path string) (string, error)

type PDFExtractorConfig struct {
	ProjectID        string
	InputFolderParam string
	TextFolderParam  string
	WorkflowID       string
	WorkflowLocation string
}

// PDFExtractorFunction turns uploaded PDFs into data.txt files for the quiz stage.
type PDFExtractorFunction struct {
	objects ExtractorObjects
	params  gcp.ParameterStore
	jobs    gcp.JobStore
	events  gcp.EventPublisher
	inspect PDFInspector
	extract TextExtractor
	now     func() time.Time
	config  PDFExtractorConfig
}

type PDFExtractorDeps struct {
	Objects ExtractorObjects
	Params  gcp.ParameterStore
	Jobs    gcp.JobStore
	Events  gcp.EventPublisher
	Inspect PDFInspector
	Extract TextExtractor
	Now     func() time.Time
}

func NewPDFExtractor(ctx context.Context) (*PDFExtractorFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	config := PDFExtractorConfig{
		ProjectID:        projectID,
		InputFolderParam: gcp.GetEnv("INPUT_FOLDER_PARAM", ParamInputFolder),
		TextFolderParam:  gcp.GetEnv("TEXT_FOLDER_PARAM", ParamTextFolder),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", "quiz-generation-orchestrator"),
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := NewPDFExtractorWith(PDFExtractorDeps{
		Objects: gcp.NewGCSStore(storageClient),
		Params:  gcp.NewFirestoreParameters(firestoreClient, gcp.GetEnv("PARAMETER_COLLECTION", "parameters")),
		Jobs:    gcp.NewFirestoreJobs(firestoreClient, gcp.GetEnv("JOB_COLLECTION", "quizJobs")),
		Events:  gcp.NewWorkflowPublisher(executionsClient, config.ProjectID, config.WorkflowLocation, config.WorkflowID),
	}, config)
	slog.Info("PDF extractor initialized.", "workflowId", config.WorkflowID)
	return f, nil
}

func NewPDFExtractorWith(deps PDFExtractorDeps, config PDFExtractorConfig) *PDFExtractorFunction {
	f := &PDFExtractorFunction{
		objects: deps.Objects,
		params:  deps.Params,
		jobs:    deps.Jobs,
		events:  deps.Events,
		inspect: deps.Inspect,
		extract: deps.Extract,
		now:     deps.Now,
		config:  config,
	}
	if f.inspect == nil {
		f.inspect = OptimizePDF
	}
	if f.extract == nil {
		f.extract = extract.PDFText
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Process extracts one uploaded object. Objects outside the input folder, or
// that are not PDFs, are skipped without error. The returned job ID is empty
// for skipped objects.
func (f *PDFExtractorFunction) Process(ctx context.Context, e GCSEvent) (string, error) {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	inputFolder, err := f.params.Get(ctx, f.config.InputFolderParam)
	if err != nil {
		logCtx.Error("Failed to read input folder parameter", "error", err)
		return "", err
	}
	inputLoc, err := gcp.ParseLocation(inputFolder, e.Bucket)
	if err != nil {
		return "", err
	}
	if !inputLoc.Contains(e.Bucket, e.Name) || !strings.EqualFold(filepath.Ext(e.Name), ".pdf") {
		logCtx.Info("Object is not a PDF in the input folder. Skipping.", "inputFolder", inputLoc.String())
		return "", nil
	}

	textFolder, err := f.params.Get(ctx, f.config.TextFolderParam)
	if err != nil {
		logCtx.Error("Failed to read text folder parameter", "error", err)
		return "", err
	}
	textLoc, err := gcp.ParseLocation(textFolder, e.Bucket)
	if err != nil {
		return "", err
	}

	info, err := f.objects.Head(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to stat source PDF", "error", err)
		return "", err
	}
	if !info.Exists {
		logCtx.Warn("Source PDF no longer exists. Skipping.")
		return "", nil
	}

	jobID := jobid.FromObject(e.Bucket, e.Name, info.Size)
	logCtx = logCtx.With("jobId", jobID)
	logCtx.Info("Processing new PDF.", "size", info.Size)

	if err := f.objects.SetMetadata(ctx, e.Bucket, e.Name, map[string]string{"jobId": jobID}); err != nil {
		logCtx.Warn("Failed to tag source object with job ID", "error", err)
	}

	record := models.JobRecord{
		JobID:        jobID,
		SourceBucket: e.Bucket,
		SourceObject: e.Name,
		SourceSize:   info.Size,
	}

	tempDir, err := os.MkdirTemp("", "pdf-extractor-*")
	if err != nil {
		return jobID, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := f.objects.Download(ctx, e.Bucket, e.Name, sourcePath); err != nil {
		return jobID, f.handleError(ctx, logCtx, record, "failed to download source PDF", err)
	}
	record.ContentHash, err = hashFile(sourcePath)
	if err != nil {
		return jobID, f.handleError(ctx, logCtx, record, "failed to calculate file hash", err)
	}

	readPath, pageCount, err := f.inspect(sourcePath, tempDir)
	if err != nil {
		return jobID, f.handleError(ctx, logCtx, record, "failed to validate/optimize PDF", err)
	}
	record.PageCount = pageCount

	text, err := f.extract(readPath)
	if err != nil {
		return jobID, f.handleError(ctx, logCtx, record, "failed to extract text", err)
	}
	if text == "" {
		logCtx.Warn("PDF contains no extractable text.", "pageCount", pageCount)
	}

	folderKey := textLoc.Key(jobID + "/")
	if err := f.objects.CreateIfAbsent(ctx, textLoc.Bucket, folderKey, nil); err != nil {
		logCtx.Warn("Failed to create job folder marker", "error", err)
	}
	textKey := textLoc.Key(jobID + "/" + SourceTextFile)
	if err := f.objects.Put(ctx, textLoc.Bucket, textKey, []byte(text), "text/plain; charset=utf-8"); err != nil {
		return jobID, f.handleError(ctx, logCtx, record, "failed to store extracted text", err)
	}

	record.Status = models.StatusExtracted
	if err := f.jobs.Upsert(ctx, record); err != nil {
		logCtx.Error("Failed to record EXTRACTED job", "error", err)
		return jobID, err
	}

	detail := models.ExtractFinishedDetail{
		JobID:  jobID,
		Bucket: textLoc.Bucket,
		Key:    textKey,
		Status: models.StatusExtracted,
		TS:     f.now().UTC().Format(time.RFC3339),
	}
	if err := f.events.Publish(ctx, ExtractEventSource, ExtractEventDetailType, detail); err != nil {
		logCtx.Error("Failed to publish extract event", "error", err)
	}

	logCtx.Info("Extraction complete.", "pageCount", pageCount, "textKey", textKey, "chars", len([]rune(text)))
	return jobID, nil
}

func (f *PDFExtractorFunction) handleError(ctx context.Context, logCtx *slog.Logger, record models.JobRecord, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	record.Status = models.StatusFailed
	record.ErrorDetails = fullError
	if err := f.jobs.Upsert(ctx, record); err != nil {
		logCtx.Error("CRITICAL: Failed to record FAILED job after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

// OptimizePDF validates and rewrites src with pdfcpu in relaxed mode and
// returns the optimized copy with its page count.
func OptimizePDF(src, workDir string) (string, int, error) {
	optimized := filepath.Join(workDir, "optimized.pdf")
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.OptimizeFile(src, optimized, cfg); err != nil {
		return "", 0, err
	}
	pageCount, err := api.PageCountFile(optimized)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return optimized, pageCount, nil
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return jobid.FromContent(file)
}
