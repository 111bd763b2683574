package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/Lllllllleong/quizflow/internal/gcp"
	"github.com/Lllllllleong/quizflow/internal/models"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type memObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

// memStore is an in-memory ExtractorObjects.
type memStore struct {
	mu      sync.Mutex
	objects map[string]*memObject
	failPut map[string]error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]*memObject{}, failPut: map[string]error{}}
}

func objKey(bucket, key string) string { return bucket + "/" + key }

func (m *memStore) seed(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objKey(bucket, key)] = &memObject{data: data}
}

func (m *memStore) object(bucket, key string) (*memObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[objKey(bucket, key)]
	return o, ok
}

func (m *memStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	o, ok := m.object(bucket, key)
	if !ok {
		return nil, gcp.ErrObjectNotFound
	}
	return o.data, nil
}

func (m *memStore) Put(_ context.Context, bucket, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failPut[objKey(bucket, key)]; err != nil {
		return err
	}
	m.objects[objKey(bucket, key)] = &memObject{data: data, contentType: contentType}
	return nil
}

func (m *memStore) Head(_ context.Context, bucket, key string) (gcp.ObjectInfo, error) {
	o, ok := m.object(bucket, key)
	if !ok {
		return gcp.ObjectInfo{}, nil
	}
	return gcp.ObjectInfo{Exists: true, Size: int64(len(o.data))}, nil
}

func (m *memStore) Download(_ context.Context, bucket, key, destPath string) error {
	o, ok := m.object(bucket, key)
	if !ok {
		return gcp.ErrObjectNotFound
	}
	return os.WriteFile(destPath, o.data, 0o600)
}

func (m *memStore) SetMetadata(_ context.Context, bucket, key string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[objKey(bucket, key)]
	if !ok {
		return gcp.ErrObjectNotFound
	}
	if o.metadata == nil {
		o.metadata = map[string]string{}
	}
	for k, v := range metadata {
		o.metadata[k] = v
	}
	return nil
}

func (m *memStore) CreateIfAbsent(_ context.Context, bucket, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[objKey(bucket, key)]; !ok {
		m.objects[objKey(bucket, key)] = &memObject{data: data}
	}
	return nil
}

type mapParams map[string]string

func (p mapParams) Get(_ context.Context, name string) (string, error) {
	v, ok := p[name]
	if !ok || v == "" {
		return "", fmt.Errorf("parameter %s is not set", name)
	}
	return v, nil
}

type staticSecret struct {
	key string
	err error
}

func (s staticSecret) Get(context.Context, string) (string, error) { return s.key, s.err }

type statusUpdate struct {
	JobID  string
	Status string
	Fields map[string]any
}

type recordingJobs struct {
	mu      sync.Mutex
	records []models.JobRecord
	updates []statusUpdate
}

func (j *recordingJobs) Upsert(_ context.Context, job models.JobRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, job)
	return nil
}

func (j *recordingJobs) UpdateStatus(_ context.Context, jobID, status string, fields map[string]any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.updates = append(j.updates, statusUpdate{JobID: jobID, Status: status, Fields: fields})
	return nil
}

func (j *recordingJobs) statuses() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, u := range j.updates {
		out = append(out, u.Status)
	}
	return out
}

type publishedEvent struct {
	Source     string
	DetailType string
	Detail     any
}

type recordingEvents struct {
	events []publishedEvent
	err    error
}

func (e *recordingEvents) Publish(_ context.Context, source, detailType string, detail any) error {
	e.events = append(e.events, publishedEvent{source, detailType, detail})
	return e.err
}

var errBoom = errors.New("boom")
