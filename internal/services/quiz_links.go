package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/quizflow/internal/gcp"
	"github.com/Lllllllleong/quizflow/internal/jobid"
	"github.com/Lllllllleong/quizflow/internal/models"
)

// DefaultPublicBaseURL serves objects of publicly readable buckets.
const DefaultPublicBaseURL = "https://storage.googleapis.com"

type QuizLinksConfig struct {
	DefaultBucket   string
	QuizFolderParam string
	PublicBaseURL   string
}

// QuizLinksFunction answers result lookups from the web front end: the quiz
// JSON itself and whether the PDF is ready yet.
type QuizLinksFunction struct {
	objects gcp.ObjectStore
	params  gcp.ParameterStore
	config  QuizLinksConfig
}

func NewQuizLinks(ctx context.Context) (*QuizLinksFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	bucket := gcp.GetEnv("QUIZ_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("QUIZ_BUCKET environment variable must be set")
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return NewQuizLinksWith(
		gcp.NewGCSStore(storageClient),
		gcp.NewFirestoreParameters(firestoreClient, gcp.GetEnv("PARAMETER_COLLECTION", "parameters")),
		QuizLinksConfig{
			DefaultBucket:   bucket,
			QuizFolderParam: gcp.GetEnv("QUIZ_FOLDER_PARAM", ParamQuizFolder),
			PublicBaseURL:   gcp.GetEnv("PUBLIC_BASE_URL", DefaultPublicBaseURL),
		},
	), nil
}

func NewQuizLinksWith(objects gcp.ObjectStore, params gcp.ParameterStore, config QuizLinksConfig) *QuizLinksFunction {
	if config.PublicBaseURL == "" {
		config.PublicBaseURL = DefaultPublicBaseURL
	}
	return &QuizLinksFunction{objects: objects, params: params, config: config}
}

func (f *QuizLinksFunction) quizLocation(ctx context.Context) (gcp.Location, error) {
	folder, err := f.params.Get(ctx, f.config.QuizFolderParam)
	if err != nil {
		return gcp.Location{}, err
	}
	return gcp.ParseLocation(folder, f.config.DefaultBucket)
}

// ServeQuizJSON returns the stored quiz.json for ?jobId=.
func (f *QuizLinksFunction) ServeQuizJSON(w http.ResponseWriter, r *http.Request) {
	if handlePreflight(w, r) {
		return
	}
	jobID := strings.TrimSpace(r.URL.Query().Get("jobId"))
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "jobId is required"})
		return
	}
	logCtx := slog.With("jobId", jobID, "derivedJobId", jobid.Valid(jobID))

	loc, err := f.quizLocation(r.Context())
	if err != nil {
		logCtx.Error("Failed to resolve quiz folder.", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
		return
	}
	key := loc.Key(jobID + "/" + QuizJSONFile)
	info, err := f.objects.Head(r.Context(), loc.Bucket, key)
	if err != nil {
		logCtx.Error("Failed to check quiz JSON.", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
		return
	}
	if !info.Exists {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "quiz not found"})
		return
	}
	data, err := f.objects.Get(r.Context(), loc.Bucket, key)
	if err != nil {
		logCtx.Error("Failed to read quiz JSON.", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
		return
	}
	setCORS(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ServePDFStatus reports whether quiz.pdf exists for ?jobId=: 200 with its URL
// when ready, 202 while it is still being produced.
func (f *QuizLinksFunction) ServePDFStatus(w http.ResponseWriter, r *http.Request) {
	if handlePreflight(w, r) {
		return
	}
	jobID := strings.TrimSpace(r.URL.Query().Get("jobId"))
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "jobId is required"})
		return
	}
	logCtx := slog.With("jobId", jobID, "derivedJobId", jobid.Valid(jobID))

	loc, err := f.quizLocation(r.Context())
	if err != nil {
		logCtx.Error("Failed to resolve quiz folder.", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
		return
	}
	key := loc.Key(jobID + "/" + QuizPDFFile)
	info, err := f.objects.Head(r.Context(), loc.Bucket, key)
	if err != nil {
		logCtx.Error("Failed to check quiz PDF.", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
		return
	}
	if !info.Exists {
		writeJSON(w, http.StatusAccepted, models.PDFStatusResponse{Status: "processing", Message: "PDF file not ready yet."})
		return
	}
	writeJSON(w, http.StatusOK, models.PDFStatusResponse{Status: "ready", PDFURL: f.publicURL(loc.Bucket, key)})
}

func (f *QuizLinksFunction) publicURL(bucket, key string) string {
	return strings.TrimRight(f.config.PublicBaseURL, "/") + "/" + bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}
