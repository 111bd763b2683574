package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/quizflow/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// ParameterStore resolves named runtime parameters.
type ParameterStore interface {
	Get(ctx context.Context, name string) (string, error)
}

// FirestoreParameters stores each parameter as a document whose ID is the
// parameter name and whose "value" field holds the string value.
type FirestoreParameters struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreParameters(client *firestore.Client, collection string) *FirestoreParameters {
	return &FirestoreParameters{client: client, collection: collection}
}

// Get fails when the parameter is missing or its value is empty.
func (p *FirestoreParameters) Get(ctx context.Context, name string) (string, error) {
	snap, err := p.client.Collection(p.collection).Doc(name).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", fmt.Errorf("parameter %s is not set", name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read parameter %s: %w", name, err)
	}
	raw, err := snap.DataAt("value")
	if err != nil {
		return "", fmt.Errorf("parameter %s has no value: %w", name, err)
	}
	return parameterValue(name, raw)
}

// parameterValue returns the trimmed string value of a parameter document.
func parameterValue(name string, raw any) (string, error) {
	value, ok := raw.(string)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", fmt.Errorf("parameter %s is empty", name)
	}
	return value, nil
}

// JobStore records job progress.
type JobStore interface {
	Upsert(ctx context.Context, job models.JobRecord) error
	UpdateStatus(ctx context.Context, jobID, status string, fields map[string]any) error
}

// FirestoreJobs keeps one document per job, keyed by job ID.
type FirestoreJobs struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

func NewFirestoreJobs(client *firestore.Client, collection string) *FirestoreJobs {
	return &FirestoreJobs{client: client, collection: collection, now: time.Now}
}

// Upsert writes the full record, replacing any earlier run of the same job.
func (j *FirestoreJobs) Upsert(ctx context.Context, job models.JobRecord) error {
	now := j.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if _, err := j.client.Collection(j.collection).Doc(job.JobID).Set(ctx, job); err != nil {
		return fmt.Errorf("failed to write job %s: %w", job.JobID, err)
	}
	return nil
}

// UpdateStatus merges status, updatedAt and fields into the job document,
// creating it if the extraction stage never recorded one.
func (j *FirestoreJobs) UpdateStatus(ctx context.Context, jobID, status string, fields map[string]any) error {
	data := map[string]any{
		"jobId":     jobID,
		"status":    status,
		"updatedAt": j.now(),
	}
	for k, v := range fields {
		data[k] = v
	}
	if _, err := j.client.Collection(j.collection).Doc(jobID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update job %s to %s: %w", jobID, status, err)
	}
	return nil
}
