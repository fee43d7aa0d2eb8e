package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage implements ReportStore using MinIO (S3-compatible storage).
type MinIOStorage struct {
	client *minio.Client
	bucket string
}

// MinIOConfig holds the configuration for MinIO client initialization.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
}

// NewMinIOStorage creates a new MinIO storage client, creating the bucket
// if it does not exist yet.
func NewMinIOStorage(ctx context.Context, config MinIOConfig) (*MinIOStorage, error) {
	if config.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if config.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if config.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", config.Bucket, err)
		}
	}

	return &MinIOStorage{
		client: client,
		bucket: config.Bucket,
	}, nil
}

// SaveReport stores a rendered report for the given key.
func (m *MinIOStorage) SaveReport(ctx context.Context, key ReportKey, data []byte, contentType string) error {
	if err := ValidateReportKey(key); err != nil {
		return err
	}

	objectPath := ObjectPath(key)
	_, err := m.client.PutObject(ctx, m.bucket, objectPath, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to MinIO object %s: %w", objectPath, err)
	}

	return nil
}

// GetReport retrieves the report for the given key.
// Returns nil if the object does not exist.
func (m *MinIOStorage) GetReport(ctx context.Context, key ReportKey) ([]byte, error) {
	if err := ValidateReportKey(key); err != nil {
		return nil, err
	}

	objectPath := ObjectPath(key)
	obj, err := m.client.GetObject(ctx, m.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get MinIO object %s: %w", objectPath, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces on read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read MinIO object %s: %w", objectPath, err)
	}

	return data, nil
}

// ListReports lists object paths in the bucket under prefix, sorted.
func (m *MinIOStorage) ListReports(ctx context.Context, prefix string) ([]string, error) {
	var paths []string

	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		paths = append(paths, obj.Key)
	}

	sort.Strings(paths)
	return paths, nil
}

// Close is a no-op; the MinIO client holds no resources that need releasing.
func (m *MinIOStorage) Close() error {
	return nil
}
