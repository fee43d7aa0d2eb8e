package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStorage implements ReportStore using Google Cloud Storage.
type GCSStorage struct {
	client *storage.Client
	bucket string
}

// NewGCSStorage creates a new GCS storage client.
// It uses Application Default Credentials (ADC) for authentication.
func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: bucket,
	}, nil
}

// SaveReport stores a rendered report for the given key.
func (g *GCSStorage) SaveReport(ctx context.Context, key ReportKey, data []byte, contentType string) error {
	if err := ValidateReportKey(key); err != nil {
		return err
	}

	objectPath := ObjectPath(key)
	w := g.client.Bucket(g.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write to GCS object %s: %w", objectPath, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", objectPath, err)
	}

	return nil
}

// GetReport retrieves the report for the given key.
// Returns nil if the object does not exist.
func (g *GCSStorage) GetReport(ctx context.Context, key ReportKey) ([]byte, error) {
	if err := ValidateReportKey(key); err != nil {
		return nil, err
	}

	objectPath := ObjectPath(key)
	r, err := g.client.Bucket(g.bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open GCS object %s: %w", objectPath, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %s: %w", objectPath, err)
	}

	return data, nil
}

// ListReports lists object paths in the bucket under prefix.
func (g *GCSStorage) ListReports(ctx context.Context, prefix string) ([]string, error) {
	var paths []string

	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{
		Prefix: prefix,
	})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		paths = append(paths, attrs.Name)
	}

	return paths, nil
}

// Close releases resources held by the storage client.
func (g *GCSStorage) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
