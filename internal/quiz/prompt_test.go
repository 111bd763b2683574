package quiz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddedSource(t *testing.T, prompt string) string {
	t.Helper()
	_, rest, ok := strings.Cut(prompt, SourceStartMarker+"\n")
	require.True(t, ok)
	src, _, ok := strings.Cut(rest, "\n"+SourceEndMarker)
	require.True(t, ok)
	return src
}

func TestBuildPromptEmbedsShortTextVerbatim(t *testing.T) {
	text := "The capital of France is Paris.\nIt lies on the Seine."
	prompt := BuildPrompt(text, "abc123")

	assert.Equal(t, text, embeddedSource(t, prompt))
	assert.Contains(t, prompt, "JOB_ID: abc123\n")
	assert.True(t, strings.HasPrefix(prompt, QuizInstructions))
	assert.Contains(t, prompt, "exactly 10 multiple-choice questions")
	assert.Contains(t, prompt, `"correctAnswer"`)
}

func TestBuildPromptTruncatesToCharacterBudget(t *testing.T) {
	text := strings.Repeat("a", MaxSourceChars) + "TAIL"
	src := embeddedSource(t, BuildPrompt(text, "job"))

	assert.Equal(t, strings.Repeat("a", MaxSourceChars), src)
	assert.NotContains(t, src, "TAIL")
}

func TestBuildPromptCountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("é", MaxSourceChars+10)
	src := embeddedSource(t, BuildPrompt(text, "job"))

	assert.Equal(t, MaxSourceChars, len([]rune(src)))
	assert.Equal(t, strings.Repeat("é", MaxSourceChars), src)
}

func TestBuildPromptExactlyAtBudget(t *testing.T) {
	text := strings.Repeat("b", MaxSourceChars)
	assert.Equal(t, text, embeddedSource(t, BuildPrompt(text, "job")))
}

func TestBuildPromptDeterministic(t *testing.T) {
	assert.Equal(t, BuildPrompt("same text", "id-1"), BuildPrompt("same text", "id-1"))
	assert.NotEqual(t, BuildPrompt("same text", "id-1"), BuildPrompt("same text", "id-2"))
}
