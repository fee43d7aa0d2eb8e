package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisQueue implements Publisher using Redis Streams.
type RedisQueue struct {
	client    *redis.Client
	streamKey string
	maxLen    int64
}

// RedisConfig holds configuration for creating a RedisQueue.
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string

	// Password is the Redis password (optional)
	Password string

	// DB is the Redis database number (default: 0)
	DB int

	// StreamKey is the Redis stream name
	StreamKey string

	// MaxLen approximately caps the stream length; 0 keeps every entry.
	MaxLen int64
}

// NewRedisQueue creates a new RedisQueue and checks the connection.
// The caller is responsible for calling Close() when done.
func NewRedisQueue(ctx context.Context, cfg RedisConfig) (*RedisQueue, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.StreamKey == "" {
		return nil, fmt.Errorf("stream key is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisQueue{
		client:    client,
		streamKey: cfg.StreamKey,
		maxLen:    cfg.MaxLen,
	}, nil
}

// Publish appends the event to the stream.
// Entries carry the JSON payload plus a few fields for XRANGE-level filtering.
func (q *RedisQueue) Publish(ctx context.Context, event *ReportEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal report event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: q.streamKey,
		Values: map[string]interface{}{
			"data":   string(data),
			"id":     event.ID,
			"org":    event.Org,
			"repo":   event.Repo,
			"branch": event.Branch,
		},
	}
	if q.maxLen > 0 {
		args.MaxLen = q.maxLen
		args.Approx = true
	}

	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish message to redis stream: %w", err)
	}

	return nil
}

// Close releases resources held by the RedisQueue.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
