package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/config"
)

// ReportEvent announces a finished diff coverage report.
type ReportEvent struct {
	// ID is a random UUID unique to this event.
	ID string `json:"id"`

	Org    string `json:"org"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`

	// CompareBranch is the branch the diff was taken against.
	CompareBranch string `json:"compare_branch,omitempty"`

	TotalAdded     int     `json:"total_added"`
	TotalCovered   int     `json:"total_covered"`
	TotalUncovered int     `json:"total_uncovered"`
	Percent        float64 `json:"percent"`

	// ObjectPath is where the report was stored, if it was.
	ObjectPath string `json:"object_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewReportEvent creates an event with a fresh ID and timestamp.
func NewReportEvent(org, repo, branch string) *ReportEvent {
	return &ReportEvent{
		ID:        uuid.NewString(),
		Org:       org,
		Repo:      repo,
		Branch:    branch,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks that the event identifies a report.
func (e *ReportEvent) Validate() error {
	if e == nil {
		return errors.New("report event cannot be nil")
	}
	if e.ID == "" {
		return errors.New("event ID is required")
	}
	if e.Org == "" || e.Repo == "" || e.Branch == "" {
		return errors.New("org, repo and branch are required")
	}
	return nil
}

// Publisher sends report events to a queue.
// Implementations include GCP Pub/Sub, Redis Streams, and an in-memory channel.
type Publisher interface {
	// Publish sends the event. It returns once the backend has accepted it.
	Publish(ctx context.Context, event *ReportEvent) error

	// Close releases any resources held by the publisher.
	Close() error
}

// New creates the publisher selected by cfg.
// It returns nil when publishing is disabled.
func New(ctx context.Context, cfg config.QueueConfig) (Publisher, error) {
	switch cfg.Type {
	case config.QueueTypeNone:
		return nil, nil
	case config.QueueTypeInMemory:
		return NewInMemoryQueue(InMemoryConfig{}), nil
	case config.QueueTypeRedis:
		q, err := NewRedisQueue(ctx, RedisConfig{
			Address:   cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			StreamKey: cfg.RedisStream,
		})
		if err != nil {
			return nil, err
		}
		return q, nil
	case config.QueueTypePubSub:
		q, err := NewPubSubQueue(ctx, PubSubConfig{
			ProjectID: cfg.PubSubProjectID,
			TopicName: cfg.PubSubTopicID,
		})
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue type: %s", cfg.Type)
	}
}
