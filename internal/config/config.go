package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when no config path is given.
const DefaultConfigFile = ".diffcover.yaml"

// StorageType represents the report storage backend.
type StorageType string

const (
	StorageTypeNone  StorageType = ""
	StorageTypeGCS   StorageType = "gcs"
	StorageTypeMinio StorageType = "minio"
)

// QueueType represents the report event queue backend.
type QueueType string

const (
	QueueTypeNone     QueueType = ""
	QueueTypeInMemory QueueType = "inmemory"
	QueueTypeRedis    QueueType = "redis"
	QueueTypePubSub   QueueType = "pubsub"
)

var validFormats = []string{"Text", "Markdown", "GitHubAnnotations", "JSON"}

// Config holds all configuration for a diffcover run.
type Config struct {
	// GitPath is the git program to run.
	GitPath string `yaml:"git_path"`
	// WorkDir is the repository directory; empty means the current directory.
	WorkDir string `yaml:"work_dir"`
	// CompareBranch is the branch committed changes are compared against.
	CompareBranch string `yaml:"compare_branch"`
	// DiffFile replaces git with a pre-captured diff when set.
	DiffFile string `yaml:"diff_file"`
	// CoverageDir holds the *.out coverage profiles.
	CoverageDir string `yaml:"coverage_dir"`
	// Format is the output format (Text, Markdown, GitHubAnnotations, JSON).
	Format string `yaml:"format"`

	IgnoreStaged   bool `yaml:"ignore_staged"`
	IgnoreUnstaged bool `yaml:"ignore_unstaged"`

	// Include and Exclude are doublestar globs applied to diff paths.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	// FailUnder fails the run when diff coverage is below this percentage.
	FailUnder float64 `yaml:"fail_under"`

	LogLevel string `yaml:"log_level"`

	// Port is the HTTP port for the report server.
	Port int `yaml:"port"`

	Report  ReportConfig  `yaml:"report"`
	Storage StorageConfig `yaml:"storage"`
	Queue   QueueConfig   `yaml:"queue"`
}

// ReportConfig identifies where a stored report belongs.
type ReportConfig struct {
	Org    string `yaml:"org"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`
}

// StorageConfig holds report storage configuration
type StorageConfig struct {
	Type StorageType `yaml:"type"`

	// GCS configuration
	GCSBucket string `yaml:"gcs_bucket"`

	// MinIO configuration
	MinIOEndpoint  string `yaml:"minio_endpoint"`
	MinIOAccessKey string `yaml:"minio_access_key"`
	MinIOSecretKey string `yaml:"minio_secret_key"`
	MinIOBucket    string `yaml:"minio_bucket"`
	MinIOUseSSL    bool   `yaml:"minio_use_ssl"`
}

// QueueConfig holds report event queue configuration
type QueueConfig struct {
	Type QueueType `yaml:"type"`

	// Redis configuration
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisStream   string `yaml:"redis_stream"`

	// Pub/Sub configuration
	PubSubProjectID string `yaml:"pubsub_project_id"`
	PubSubTopicID   string `yaml:"pubsub_topic_id"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		GitPath:       "git",
		CompareBranch: "origin/master",
		CoverageDir:   "coverage",
		Format:        "Text",
		LogLevel:      "info",
		Port:          8080,
		Storage: StorageConfig{
			MinIOBucket: "diffcover-reports",
		},
		Queue: QueueConfig{
			RedisAddr:     "localhost:6379",
			RedisStream:   "diffcover-reports",
			PubSubTopicID: "diffcover-reports",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path,
// then DIFFCOVER_* environment variables, and validates the result.
// An empty path reads DefaultConfigFile if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path. Unknown keys are rejected.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays DIFFCOVER_* environment variables.
func (c *Config) loadEnv() error {
	c.GitPath = getEnv("DIFFCOVER_GIT_PATH", c.GitPath)
	c.WorkDir = getEnv("DIFFCOVER_WORK_DIR", c.WorkDir)
	c.CompareBranch = getEnv("DIFFCOVER_COMPARE_BRANCH", c.CompareBranch)
	c.DiffFile = getEnv("DIFFCOVER_DIFF_FILE", c.DiffFile)
	c.CoverageDir = getEnv("DIFFCOVER_COVERAGE_DIR", c.CoverageDir)
	c.Format = getEnv("DIFFCOVER_FORMAT", c.Format)
	c.LogLevel = getEnv("DIFFCOVER_LOG_LEVEL", c.LogLevel)

	var err error
	if c.IgnoreStaged, err = getEnvBool("DIFFCOVER_IGNORE_STAGED", c.IgnoreStaged); err != nil {
		return err
	}
	if c.IgnoreUnstaged, err = getEnvBool("DIFFCOVER_IGNORE_UNSTAGED", c.IgnoreUnstaged); err != nil {
		return err
	}

	c.Include = getEnvList("DIFFCOVER_INCLUDE", c.Include)
	c.Exclude = getEnvList("DIFFCOVER_EXCLUDE", c.Exclude)

	if v := os.Getenv("DIFFCOVER_FAIL_UNDER"); v != "" {
		failUnder, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DIFFCOVER_FAIL_UNDER: %w", err)
		}
		c.FailUnder = failUnder
	}

	if v := os.Getenv("DIFFCOVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DIFFCOVER_PORT: %w", err)
		}
		c.Port = port
	}

	c.Report.Org = getEnv("DIFFCOVER_REPORT_ORG", c.Report.Org)
	c.Report.Repo = getEnv("DIFFCOVER_REPORT_REPO", c.Report.Repo)
	c.Report.Branch = getEnv("DIFFCOVER_REPORT_BRANCH", c.Report.Branch)

	c.Storage.Type = StorageType(getEnv("DIFFCOVER_STORAGE_TYPE", string(c.Storage.Type)))
	c.Storage.GCSBucket = getEnv("DIFFCOVER_GCS_BUCKET", c.Storage.GCSBucket)
	c.Storage.MinIOEndpoint = getEnv("DIFFCOVER_MINIO_ENDPOINT", c.Storage.MinIOEndpoint)
	c.Storage.MinIOAccessKey = getEnv("DIFFCOVER_MINIO_ACCESS_KEY", c.Storage.MinIOAccessKey)
	c.Storage.MinIOSecretKey = getEnv("DIFFCOVER_MINIO_SECRET_KEY", c.Storage.MinIOSecretKey)
	c.Storage.MinIOBucket = getEnv("DIFFCOVER_MINIO_BUCKET", c.Storage.MinIOBucket)
	if c.Storage.MinIOUseSSL, err = getEnvBool("DIFFCOVER_MINIO_USE_SSL", c.Storage.MinIOUseSSL); err != nil {
		return err
	}

	c.Queue.Type = QueueType(getEnv("DIFFCOVER_QUEUE_TYPE", string(c.Queue.Type)))
	c.Queue.RedisAddr = getEnv("DIFFCOVER_REDIS_ADDR", c.Queue.RedisAddr)
	c.Queue.RedisPassword = getEnv("DIFFCOVER_REDIS_PASSWORD", c.Queue.RedisPassword)
	if v := os.Getenv("DIFFCOVER_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DIFFCOVER_REDIS_DB: %w", err)
		}
		c.Queue.RedisDB = db
	}
	c.Queue.RedisStream = getEnv("DIFFCOVER_REDIS_STREAM", c.Queue.RedisStream)
	c.Queue.PubSubProjectID = getEnv("DIFFCOVER_PUBSUB_PROJECT_ID", c.Queue.PubSubProjectID)
	c.Queue.PubSubTopicID = getEnv("DIFFCOVER_PUBSUB_TOPIC_ID", c.Queue.PubSubTopicID)

	return nil
}

// Validate validates the complete configuration
func (c *Config) Validate() error {
	if c.GitPath == "" {
		return fmt.Errorf("git path is required")
	}

	if !contains(validFormats, c.Format) {
		return fmt.Errorf("invalid format: %s (must be one of %s)", c.Format, strings.Join(validFormats, ", "))
	}

	if c.FailUnder < 0 || c.FailUnder > 100 {
		return fmt.Errorf("invalid fail_under: %g (must be between 0 and 100)", c.FailUnder)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be between 1 and 65535)", c.Port)
	}

	if err := c.Storage.validate(); err != nil {
		return err
	}

	if err := c.Queue.validate(); err != nil {
		return err
	}

	return nil
}

// ValidateReport checks that a report identity is set when reports are
// stored or published. Only analysis runs need it; the report server does not.
// The inmemory queue has no consumer in a one-shot run, so it is rejected here;
// it exists for embedding the runner and for tests.
func (c *Config) ValidateReport() error {
	if c.Queue.Type == QueueTypeInMemory {
		return fmt.Errorf("queue type inmemory has no consumer in a CLI run (use redis or pubsub)")
	}
	if c.Storage.Type == StorageTypeNone && c.Queue.Type == QueueTypeNone {
		return nil
	}
	if c.Report.Org == "" || c.Report.Repo == "" || c.Report.Branch == "" {
		return fmt.Errorf("report org, repo and branch are required when storage or queue is enabled")
	}
	return nil
}

func (s *StorageConfig) validate() error {
	switch s.Type {
	case StorageTypeNone:
		return nil
	case StorageTypeGCS:
		if s.GCSBucket == "" {
			return fmt.Errorf("DIFFCOVER_GCS_BUCKET is required for gcs storage")
		}
	case StorageTypeMinio:
		if s.MinIOEndpoint == "" {
			return fmt.Errorf("DIFFCOVER_MINIO_ENDPOINT is required for minio storage")
		}
		if s.MinIOAccessKey == "" {
			return fmt.Errorf("DIFFCOVER_MINIO_ACCESS_KEY is required for minio storage")
		}
		if s.MinIOSecretKey == "" {
			return fmt.Errorf("DIFFCOVER_MINIO_SECRET_KEY is required for minio storage")
		}
		if s.MinIOBucket == "" {
			return fmt.Errorf("DIFFCOVER_MINIO_BUCKET is required for minio storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be gcs or minio)", s.Type)
	}
	return nil
}

func (q *QueueConfig) validate() error {
	switch q.Type {
	case QueueTypeNone, QueueTypeInMemory:
		return nil
	case QueueTypeRedis:
		if q.RedisAddr == "" {
			return fmt.Errorf("DIFFCOVER_REDIS_ADDR is required for redis queue")
		}
		if q.RedisStream == "" {
			return fmt.Errorf("DIFFCOVER_REDIS_STREAM is required for redis queue")
		}
	case QueueTypePubSub:
		if q.PubSubProjectID == "" {
			return fmt.Errorf("DIFFCOVER_PUBSUB_PROJECT_ID is required for pubsub queue")
		}
		if q.PubSubTopicID == "" {
			return fmt.Errorf("DIFFCOVER_PUBSUB_TOPIC_ID is required for pubsub queue")
		}
	default:
		return fmt.Errorf("invalid queue type: %s (must be inmemory, redis, or pubsub)", q.Type)
	}
	return nil
}

// ParseLogLevel converts a level name into a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// getEnvList splits a comma-separated variable, trimming each item.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
