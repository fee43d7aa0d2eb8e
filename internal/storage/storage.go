package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/config"
)

// ReportKey uniquely identifies a diff coverage report in storage.
// Storage path format: {org}/{repo}/{branch}/diff-coverage.{ext}
type ReportKey struct {
	Org    string
	Repo   string
	Branch string
	// Ext is the report file extension without the dot, e.g. "md".
	Ext string
}

// ReportStore defines the interface for report persistence.
// Implementations include GCS for production and MinIO for local development.
type ReportStore interface {
	// SaveReport stores a rendered report under the given key.
	SaveReport(ctx context.Context, key ReportKey, data []byte, contentType string) error

	// GetReport retrieves the report for the given key.
	// Returns nil if the report does not exist.
	GetReport(ctx context.Context, key ReportKey) ([]byte, error)

	// ListReports returns the object paths under prefix.
	ListReports(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the storage client.
	Close() error
}

// ObjectPath creates the object path from a report key.
func ObjectPath(key ReportKey) string {
	ext := strings.TrimPrefix(key.Ext, ".")
	if ext == "" {
		ext = "txt"
	}
	return fmt.Sprintf("%s/%s/%s/diff-coverage.%s", key.Org, key.Repo, key.Branch, ext)
}

// ValidateReportKey validates that the report key fields are not empty
// and cannot escape their prefix.
func ValidateReportKey(key ReportKey) error {
	if key.Org == "" {
		return errors.New("org is required")
	}
	if key.Repo == "" {
		return errors.New("repo is required")
	}
	if key.Branch == "" {
		return errors.New("branch is required")
	}
	for _, part := range []string{key.Org, key.Repo} {
		if strings.Contains(part, "/") || part == "." || part == ".." {
			return fmt.Errorf("invalid path segment: %q", part)
		}
	}
	if strings.ContainsAny(key.Ext, `/\`) {
		return fmt.Errorf("invalid extension: %q", key.Ext)
	}
	for _, segment := range strings.Split(key.Branch, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("invalid branch: %q", key.Branch)
		}
	}
	return nil
}

// New creates the report store selected by cfg.
// It returns nil when storage is disabled.
func New(ctx context.Context, cfg config.StorageConfig) (ReportStore, error) {
	switch cfg.Type {
	case config.StorageTypeNone:
		return nil, nil
	case config.StorageTypeGCS:
		store, err := NewGCSStorage(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageTypeMinio:
		store, err := NewMinIOStorage(ctx, MinIOConfig{
			Endpoint:        cfg.MinIOEndpoint,
			AccessKeyID:     cfg.MinIOAccessKey,
			SecretAccessKey: cfg.MinIOSecretKey,
			UseSSL:          cfg.MinIOUseSSL,
			Bucket:          cfg.MinIOBucket,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
