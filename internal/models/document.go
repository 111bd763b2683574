package models

import "time"

// Job statuses, in the order a healthy job moves through them.
const (
	StatusExtracted  = "EXTRACTED"
	StatusGenerating = "GENERATING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// JobRecord tracks one PDF through extraction and quiz generation in Firestore.
// The document ID is the job ID.
type JobRecord struct {
	JobID        string    `firestore:"jobId"`
	SourceBucket string    `firestore:"sourceBucket,omitempty"`
	SourceObject string    `firestore:"sourceObject,omitempty"`
	SourceSize   int64     `firestore:"sourceSize,omitempty"`
	ContentHash  string    `firestore:"contentHash,omitempty"`
	PageCount    int       `firestore:"pageCount,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	ErrorKind    string    `firestore:"errorKind,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	Model        string    `firestore:"model,omitempty"`
	PDFSaved     bool      `firestore:"pdfSaved"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty"`
}
