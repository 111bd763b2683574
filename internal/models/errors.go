package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies every failure the quiz pipeline can report.
type ErrorKind string

const (
	KindMissingInput         ErrorKind = "MissingInput"
	KindGenerationExhausted  ErrorKind = "GenerationExhausted"
	KindMalformedResponse    ErrorKind = "MalformedResponse"
	KindSchemaViolation      ErrorKind = "SchemaViolation"
	KindRenderingUnavailable ErrorKind = "RenderingUnavailable"
	// KindUpstreamUnavailable covers collaborators (storage, parameters, secrets)
	// failing outside the generation core.
	KindUpstreamUnavailable ErrorKind = "UpstreamUnavailable"
)

// Error is a classified pipeline error. Field is set for schema violations and
// names the offending location as a JSON pointer.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Field != "" {
		msg += " (field " + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first classified error in err's chain, or ""
// when err is nil or unclassified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status code returned by the HTTP entry points.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if KindOf(err) == KindMissingInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
