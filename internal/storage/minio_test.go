package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/config"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/testutil"
)

func TestNewMinIOStorage_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		config  MinIOConfig
		wantErr string
	}{
		{
			name:    "missing endpoint",
			config:  MinIOConfig{AccessKeyID: "a", SecretAccessKey: "s", Bucket: "b"},
			wantErr: "endpoint is required",
		},
		{
			name:    "missing access key",
			config:  MinIOConfig{Endpoint: "e", SecretAccessKey: "s", Bucket: "b"},
			wantErr: "access key ID is required",
		},
		{
			name:    "missing secret key",
			config:  MinIOConfig{Endpoint: "e", AccessKeyID: "a", Bucket: "b"},
			wantErr: "secret access key is required",
		},
		{
			name:    "missing bucket",
			config:  MinIOConfig{Endpoint: "e", AccessKeyID: "a", SecretAccessKey: "s"},
			wantErr: "bucket name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewMinIOStorage(ctx, tt.config)
			require.Error(t, err)
			assert.Nil(t, store)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMinIOStorage_Integration(t *testing.T) {
	endpoint := testutil.StartMinIO(t)
	ctx := context.Background()

	store, err := New(ctx, config.StorageConfig{
		Type:           config.StorageTypeMinio,
		MinIOEndpoint:  endpoint,
		MinIOAccessKey: testutil.MinIOAccessKey,
		MinIOSecretKey: testutil.MinIOSecretKey,
		MinIOBucket:    "diffcover-test",
	})
	require.NoError(t, err)
	defer store.Close()

	key := ReportKey{Org: "grafana", Repo: "diffcover", Branch: "feature/x", Ext: "json"}

	t.Run("missing report returns nil", func(t *testing.T) {
		data, err := store.GetReport(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("save and get", func(t *testing.T) {
		require.NoError(t, store.SaveReport(ctx, key, []byte(`{"percent": 80}`), "application/json"))

		data, err := store.GetReport(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `{"percent": 80}`, string(data))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.SaveReport(ctx, key, []byte(`{"percent": 90}`), "application/json"))

		data, err := store.GetReport(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `{"percent": 90}`, string(data))
	})

	t.Run("list", func(t *testing.T) {
		other := ReportKey{Org: "grafana", Repo: "diffcover", Branch: "main", Ext: "md"}
		require.NoError(t, store.SaveReport(ctx, other, []byte("## Diff Coverage"), "text/markdown"))

		paths, err := store.ListReports(ctx, "grafana/diffcover/")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"grafana/diffcover/feature/x/diff-coverage.json",
			"grafana/diffcover/main/diff-coverage.md",
		}, paths)
	})

	t.Run("reopen existing bucket", func(t *testing.T) {
		again, err := NewMinIOStorage(ctx, MinIOConfig{
			Endpoint:        endpoint,
			AccessKeyID:     testutil.MinIOAccessKey,
			SecretAccessKey: testutil.MinIOSecretKey,
			Bucket:          "diffcover-test",
		})
		require.NoError(t, err)

		data, err := again.GetReport(ctx, key)
		require.NoError(t, err)
		assert.NotNil(t, data)
	})
}
