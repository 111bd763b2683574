// Command quiz-links serves the two result lookups used by the web front end.
// Both targets share one binary; FUNCTION_TARGET selects which one runs.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/quizflow/internal/services"
)

var (
	linksInstance *services.QuizLinksFunction
	once          sync.Once
	initErr       error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("GetQuizJSON", withLinks((*services.QuizLinksFunction).ServeQuizJSON))
	functions.HTTP("GetQuizPDFStatus", withLinks((*services.QuizLinksFunction).ServePDFStatus))
}

// main is required by the Go Functions Framework.
func main() {}

func withLinks(handler func(*services.QuizLinksFunction, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			linksInstance, initErr = services.NewQuizLinks(context.Background())
		})
		if initErr != nil {
			slog.Error("CRITICAL: Quiz links initialization failed", "error", initErr)
			http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
			return
		}
		handler(linksInstance, w, r)
	}
}
