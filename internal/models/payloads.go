package models

// These structs define the JSON payloads exchanged between the event bus,
// the HTTP entry points and the pipeline services.

// QuizRequest is the input of the quiz-generator function. It accepts either an
// event-bus envelope carrying detail.jobId or a direct {"job_id": ...} body.
type QuizRequest struct {
	Detail *QuizRequestDetail `json:"detail,omitempty"`
	JobID  string             `json:"job_id,omitempty"`
}

type QuizRequestDetail struct {
	JobID string `json:"jobId"`
}

// ObjectRef points at a single object in the object store.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type PDFObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Saved  bool   `json:"saved"`
}

type QuizOutputs struct {
	JSON ObjectRef    `json:"json"`
	PDF  PDFObjectRef `json:"pdf"`
}

// QuizResult is the structured result of the quiz-generator function. On failure
// Status is "error", and Kind and Error describe what went wrong.
type QuizResult struct {
	Status string       `json:"status"`
	JobID  string       `json:"job_id,omitempty"`
	Input  *ObjectRef   `json:"input,omitempty"`
	Output *QuizOutputs `json:"output,omitempty"`
	Model  string       `json:"model,omitempty"`
	Kind   ErrorKind    `json:"kind,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// ExtractFinishedDetail is published once data.txt for a job is in place.
type ExtractFinishedDetail struct {
	JobID  string `json:"jobId"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Status string `json:"status"`
	TS     string `json:"ts"`
}

// EventEnvelope is the argument handed to the downstream workflow.
type EventEnvelope struct {
	Source     string `json:"source"`
	DetailType string `json:"detail-type"`
	Detail     any    `json:"detail"`
}

// PDFStatusResponse is returned by the quiz PDF readiness lookup.
type PDFStatusResponse struct {
	Status  string `json:"status"`
	PDFURL  string `json:"pdfUrl,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the body of lookup failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
