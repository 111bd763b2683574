package quiz

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadValidQuiz(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile("testdata/valid_quiz.json")
	require.NoError(t, err)
	return string(b)
}

// mutateQuiz decodes the fixture, applies fn and re-encodes it.
func mutateQuiz(t *testing.T, fn func(doc map[string]any)) string {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(loadValidQuiz(t)), &doc))
	fn(doc)
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(b)
}

func question(doc map[string]any, i int) map[string]any {
	return doc["questions"].([]any)[i].(map[string]any)
}
