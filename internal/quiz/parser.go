package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Lllllllleong/quizflow/internal/models"
)

var (
	leadingFence  = regexp.MustCompile("^\\s*```[A-Za-z0-9_+-]*[ \\t]*\\r?\\n?")
	trailingFence = regexp.MustCompile("\\r?\\n?[ \\t]*```\\s*$")
)

// quizSchema describes the structure every quiz must have. Membership of
// correctAnswer in options cannot be expressed here and is checked in Go.
const quizSchema = `{
  "type": "object",
  "required": ["title", "questions"],
  "properties": {
    "title": {"type": "string", "pattern": "\\S"},
    "questions": {
      "type": "array",
      "minItems": 10,
      "maxItems": 10,
      "items": {
        "type": "object",
        "required": ["question", "options", "correctAnswer"],
        "properties": {
          "question": {"type": "string", "pattern": "\\S"},
          "options": {
            "type": "array",
            "minItems": 4,
            "maxItems": 4,
            "uniqueItems": true,
            "items": {"type": "string", "pattern": "\\S"}
          },
          "correctAnswer": {"type": "string", "pattern": "\\S"},
          "explanation": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var compiledQuizSchema = jsonschema.MustCompileString("quiz.schema.json", quizSchema)

// StripFences removes a leading fence (three backticks and an optional
// language tag) and a trailing fence, each only when present.
func StripFences(raw string) string {
	s := leadingFence.ReplaceAllString(raw, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Parse turns raw model output into a validated quiz. Every error it returns
// is a *models.Error of kind MalformedResponse or SchemaViolation.
func Parse(raw string) (*models.QuizDocument, error) {
	body := StripFences(raw)
	if body == "" {
		return nil, models.NewError(models.KindMalformedResponse, "response is empty")
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, models.WrapError(models.KindMalformedResponse, err, "response is not valid JSON")
	}
	if dec.More() {
		return nil, models.NewError(models.KindMalformedResponse, "unexpected content after the JSON document")
	}

	if err := compiledQuizSchema.Validate(generic); err != nil {
		return nil, schemaViolation(err)
	}

	var doc models.QuizDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		// Unreachable once the schema holds, but keeps the error classified.
		return nil, models.WrapError(models.KindSchemaViolation, err, "quiz does not match the expected types")
	}

	doc.Title = strings.TrimSpace(doc.Title)
	for i := range doc.Questions {
		q := &doc.Questions[i]
		q.Question = strings.TrimSpace(q.Question)
		q.Explanation = strings.TrimSpace(q.Explanation)
		answer, ok := matchOption(q.Options, q.CorrectAnswer)
		if !ok {
			return nil, &models.Error{
				Kind:    models.KindSchemaViolation,
				Message: fmt.Sprintf("correctAnswer %q is not one of the options", q.CorrectAnswer),
				Field:   fmt.Sprintf("/questions/%d/correctAnswer", i),
			}
		}
		q.CorrectAnswer = answer
	}
	return &doc, nil
}

// matchOption compares answer against each option after trimming surrounding
// whitespace on both sides. The comparison is case-sensitive. It returns the
// matching option so the stored answer always equals an option byte for byte.
func matchOption(options []string, answer string) (string, bool) {
	want := strings.TrimSpace(answer)
	for _, opt := range options {
		if strings.TrimSpace(opt) == want {
			return opt, true
		}
	}
	return "", false
}

// schemaViolation converts a jsonschema validation failure into a classified
// error naming the deepest offending field.
func schemaViolation(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return models.WrapError(models.KindSchemaViolation, err, "quiz failed schema validation")
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := leaf.InstanceLocation
	if missing, ok := strings.CutPrefix(leaf.Message, "missing properties: "); ok {
		name, _, _ := strings.Cut(missing, ", ")
		field += "/" + strings.Trim(name, "'")
	}
	if field == "" {
		field = "/"
	}
	return &models.Error{
		Kind:    models.KindSchemaViolation,
		Message: leaf.Message,
		Field:   field,
	}
}
