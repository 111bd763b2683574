package quiz

import (
	"strings"
	"unicode/utf8"
)

// MaxSourceChars is the number of source characters embedded in a prompt.
// Anything past it is dropped without a marker.
const MaxSourceChars = 12000

const (
	SourceStartMarker = "=== SOURCE TEXT START ==="
	SourceEndMarker   = "=== SOURCE TEXT END ==="
)

// QuizInstructions states the response contract given to the model.
const QuizInstructions = `You are a quiz generator. Your task is to generate a quiz from the source text. The quiz must have exactly 10 multiple-choice questions.
Your response must be a single JSON object with the following structure:
{
  "title": "Quiz from the document",
  "questions": [
    {
      "question": "string",
      "options": ["string", "string", "string", "string"],
      "correctAnswer": "string",
      "explanation": "string"
    }
    // ... 9 more question objects
  ]
}

Ensure the JSON is well-formed and does not contain any extra text or code blocks.
`

// BuildPrompt embeds the job ID and the first MaxSourceChars characters of
// text into the quiz instructions. The result depends only on its inputs.
func BuildPrompt(text, jobID string) string {
	var b strings.Builder
	b.Grow(len(QuizInstructions) + len(jobID) + min(len(text), MaxSourceChars*utf8.UTFMax) + 80)
	b.WriteString(QuizInstructions)
	b.WriteString("\nJOB_ID: ")
	b.WriteString(jobID)
	b.WriteString("\n\n")
	b.WriteString(SourceStartMarker)
	b.WriteString("\n")
	b.WriteString(truncateChars(text, MaxSourceChars))
	b.WriteString("\n")
	b.WriteString(SourceEndMarker)
	b.WriteString("\n")
	return b.String()
}

// truncateChars keeps the first n characters of s, never splitting a rune.
func truncateChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
