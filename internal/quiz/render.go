package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Lllllllleong/quizflow/internal/models"
)

// Rendered holds both renderings of one quiz.
type Rendered struct {
	CanonicalJSON []byte
	PrintableText string
}

// Render produces the canonical JSON document and the printable text layout.
func Render(doc *models.QuizDocument) (*Rendered, error) {
	canonical, err := CanonicalJSON(doc)
	if err != nil {
		return nil, err
	}
	return &Rendered{CanonicalJSON: canonical, PrintableText: PrintableText(doc)}, nil
}

// CanonicalJSON serializes doc with two-space indentation, struct field order
// and no escaping of non-ASCII or HTML characters.
func CanonicalJSON(doc *models.QuizDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode quiz: %w", err)
	}
	return buf.Bytes(), nil
}

// PrintableText linearizes doc for pagination.
func PrintableText(doc *models.QuizDocument) string {
	var b strings.Builder
	b.WriteString(doc.Title)
	b.WriteString("\n\n")
	for i, q := range doc.Questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(&b, "   %c. %s\n", 'A'+rune(j), opt)
		}
		fmt.Fprintf(&b, "Answer: %s\n", q.CorrectAnswer)
		if q.Explanation != "" {
			fmt.Fprintf(&b, "Explanation: %s\n", q.Explanation)
		}
		b.WriteString("\n")
	}
	return b.String()
}
