package testutil

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MinIO root credentials used by StartMinIO.
const (
	MinIOAccessKey = "minioadmin"
	MinIOSecretKey = "minioadmin"
)

// isPodman checks if the current container engine is Podman.
func isPodman() bool {
	// Common on Fedora/RHEL where DOCKER_HOST points at the podman socket.
	if dockerHost := os.Getenv("DOCKER_HOST"); strings.Contains(dockerHost, "podman") {
		return true
	}

	// Podman's docker-compat layer mentions itself in "docker info".
	output, err := exec.Command("docker", "info").CombinedOutput()
	if err == nil && strings.Contains(strings.ToLower(string(output)), "podman") {
		return true
	}

	return false
}

// DetectContainerProvider returns the testcontainers provider for the
// local container engine, defaulting to Docker.
func DetectContainerProvider() testcontainers.ProviderType {
	if isPodman() {
		return testcontainers.ProviderPodman
	}
	return testcontainers.ProviderDocker
}

// ConfigureRyuk disables Ryuk under Podman, where it usually lacks
// permissions. An explicit TESTCONTAINERS_RYUK_DISABLED is left alone.
// Returns true if Ryuk was disabled.
func ConfigureRyuk() bool {
	if isPodman() && os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
		return true
	}
	return false
}

// startContainer starts req and terminates it when the test ends.
// It returns the host:port endpoint of the first exposed port.
func startContainer(t *testing.T, req testcontainers.ContainerRequest) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ConfigureRyuk()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
		ProviderType:     DetectContainerProvider(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, container.Terminate(context.Background()))
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

// StartMinIO starts a MinIO server and returns its endpoint.
// The test is skipped under -short.
func StartMinIO(t *testing.T) string {
	t.Helper()
	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     MinIOAccessKey,
			"MINIO_ROOT_PASSWORD": MinIOSecretKey,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000").WithStartupTimeout(60 * time.Second),
	})
}

// StartRedis starts a Redis server and returns its address.
// The test is skipped under -short.
func StartRedis(t *testing.T) string {
	t.Helper()
	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	})
}
