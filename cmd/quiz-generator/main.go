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
	generatorInstance *services.QuizGeneratorFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Called by the orchestration workflow with the pdf-extract-finished event.
	functions.HTTP("GenerateQuiz", generateQuiz)
}

// main is required by the Go Functions Framework.
func main() {}

func generateQuiz(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		generatorInstance, initErr = services.NewQuizGenerator(context.Background())
	})
	if initErr != nil {
		slog.Error("CRITICAL: Quiz generator initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	generatorInstance.ServeHTTP(w, r)
}
