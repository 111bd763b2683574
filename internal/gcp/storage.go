package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ErrObjectNotFound is returned by ObjectStore.Get for a missing object.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo is the result of a Head call. Size is only meaningful when Exists.
type ObjectInfo struct {
	Exists bool
	Size   int64
}

// ObjectStore is the narrow storage surface the pipeline depends on.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Head(ctx context.Context, bucket, key string) (ObjectInfo, error)
}

// GCSStore implements ObjectStore on Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

func NewGCSStore(client *storage.Client) *GCSStore {
	return &GCSStore{client: client}
}

func (s *GCSStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("gs://%s/%s: %w", bucket, key, ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Put overwrites the object. Reprocessing a job rewrites the same keys.
func (s *GCSStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("io.Copy to GCS failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write of gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *GCSStore) Head(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	attrs, err := s.client.Bucket(bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ObjectInfo{}, nil
	}
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to stat gs://%s/%s: %w", bucket, key, err)
	}
	return ObjectInfo{Exists: true, Size: attrs.Size}, nil
}

// Download streams an object to a local file.
func (s *GCSStore) Download(ctx context.Context, bucket, key, destPath string) error {
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, key, err)
	}
	defer r.Close()
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return nil
}

// SetMetadata merges metadata into the object's custom metadata.
func (s *GCSStore) SetMetadata(ctx context.Context, bucket, key string, metadata map[string]string) error {
	_, err := s.client.Bucket(bucket).Object(key).Update(ctx, storage.ObjectAttrsToUpdate{Metadata: metadata})
	if err != nil {
		return fmt.Errorf("failed to update metadata of gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// CreateIfAbsent writes an object only if it doesn't already exist. An
// existing object is not a failure.
func (s *GCSStore) CreateIfAbsent(ctx context.Context, bucket, key string, data []byte) error {
	w := s.client.Bucket(bucket).Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			slog.Info("Object already exists, skipping.", "gcsObject", key)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// Location is a bucket plus a key prefix that always ends in "/" (or is empty).
type Location struct {
	Bucket string
	Prefix string
}

// ParseLocation accepts "gs://bucket/prefix" or a bare prefix, which is
// resolved against fallbackBucket.
func ParseLocation(value, fallbackBucket string) (Location, error) {
	value = strings.TrimSpace(value)
	var loc Location
	if rest, ok := strings.CutPrefix(value, "gs://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		loc = Location{Bucket: bucket, Prefix: prefix}
	} else {
		loc = Location{Bucket: fallbackBucket, Prefix: value}
	}
	if loc.Bucket == "" {
		return Location{}, fmt.Errorf("location %q does not name a bucket", value)
	}
	loc.Prefix = strings.TrimLeft(loc.Prefix, "/")
	if loc.Prefix != "" && !strings.HasSuffix(loc.Prefix, "/") {
		loc.Prefix += "/"
	}
	return loc, nil
}

// Key joins the prefix and name.
func (l Location) Key(name string) string {
	return l.Prefix + name
}

// Contains reports whether key lives under the location's prefix in bucket.
func (l Location) Contains(bucket, key string) bool {
	return bucket == l.Bucket && strings.HasPrefix(key, l.Prefix)
}

func (l Location) String() string {
	return "gs://" + l.Bucket + "/" + l.Prefix
}
