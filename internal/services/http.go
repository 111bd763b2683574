package services

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/quizflow/internal/models"
)

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func handlePreflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	setCORS(w)
	w.WriteHeader(http.StatusNoContent)
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response.", "error", err)
	}
}

// ServeHTTP decodes a QuizRequest, runs Process and writes the QuizResult with
// a status derived from the error kind.
func (f *QuizGeneratorFunction) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.QuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body.", "error", err)
		writeJSON(w, http.StatusBadRequest, models.QuizResult{
			Status: "error",
			Kind:   models.KindMissingInput,
			Error:  "request body must be a JSON object with detail.jobId or job_id",
		})
		return
	}
	res, err := f.Process(r.Context(), &req)
	writeJSON(w, models.HTTPStatus(err), res)
}
