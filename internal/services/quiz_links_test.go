package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/quizflow/internal/models"
)

func newLinksFixture() (*memStore, *QuizLinksFunction) {
	store := newMemStore()
	fn := NewQuizLinksWith(store, mapParams{ParamQuizFolder: "quizzes"}, QuizLinksConfig{
		DefaultBucket:   testBucket,
		QuizFolderParam: ParamQuizFolder,
	})
	return store, fn
}

func TestServeQuizJSON(t *testing.T) {
	store, fn := newLinksFixture()
	store.seed(testBucket, "quizzes/abc123/quiz.json", []byte(`{"title":"T","questions":[]}`))

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fn.ServeQuizJSON(rec, httptest.NewRequest(http.MethodGet, "/?jobId=abc123", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"title":"T","questions":[]}`, rec.Body.String())
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fn.ServeQuizJSON(rec, httptest.NewRequest(http.MethodGet, "/?jobId=missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing job", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fn.ServeQuizJSON(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"jobId is required"}`, rec.Body.String())
	})

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fn.ServeQuizJSON(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	})
}

func TestServeQuizJSONParameterFailure(t *testing.T) {
	fn := NewQuizLinksWith(newMemStore(), mapParams{}, QuizLinksConfig{DefaultBucket: testBucket, QuizFolderParam: ParamQuizFolder})
	rec := httptest.NewRecorder()
	fn.ServeQuizJSON(rec, httptest.NewRequest(http.MethodGet, "/?jobId=abc123", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServePDFStatus(t *testing.T) {
	store, fn := newLinksFixture()

	rec := httptest.NewRecorder()
	fn.ServePDFStatus(rec, httptest.NewRequest(http.MethodGet, "/?jobId=abc123", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	var pending models.PDFStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	assert.Equal(t, models.PDFStatusResponse{Status: "processing", Message: "PDF file not ready yet."}, pending)

	store.seed(testBucket, "quizzes/abc123/quiz.pdf", []byte("%PDF-1.3"))
	rec = httptest.NewRecorder()
	fn.ServePDFStatus(rec, httptest.NewRequest(http.MethodGet, "/?jobId=abc123", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var ready models.PDFStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "https://storage.googleapis.com/quiz-bucket/quizzes/abc123/quiz.pdf", ready.PDFURL)

	rec = httptest.NewRecorder()
	fn.ServePDFStatus(rec, httptest.NewRequest(http.MethodGet, "/?jobId=", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicURLEscapesKey(t *testing.T) {
	fn := NewQuizLinksWith(nil, nil, QuizLinksConfig{PublicBaseURL: "https://cdn.example.com/"})
	assert.Equal(t, "https://cdn.example.com/b/my%20quizzes/x/quiz.pdf", fn.publicURL("b", "my quizzes/x/quiz.pdf"))
}
