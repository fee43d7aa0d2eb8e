package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSubQueue implements Publisher using Google Cloud Pub/Sub.
type PubSubQueue struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// PubSubConfig holds configuration for creating a PubSubQueue.
type PubSubConfig struct {
	// ProjectID is the GCP project ID
	ProjectID string

	// TopicName is the Pub/Sub topic name
	TopicName string

	// CreateIfNotExists creates the topic if it doesn't exist
	CreateIfNotExists bool
}

// NewPubSubQueue creates a new PubSubQueue instance.
// The caller is responsible for calling Close() when done.
func NewPubSubQueue(ctx context.Context, cfg PubSubConfig) (*PubSubQueue, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}
	if cfg.TopicName == "" {
		return nil, fmt.Errorf("topic name is required")
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	topic := client.Topic(cfg.TopicName)

	if cfg.CreateIfNotExists {
		exists, err := topic.Exists(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to check topic existence: %w", err)
		}
		if !exists {
			topic, err = client.CreateTopic(ctx, cfg.TopicName)
			if err != nil {
				client.Close()
				return nil, fmt.Errorf("failed to create topic: %w", err)
			}
		}
	}

	return &PubSubQueue{
		client: client,
		topic:  topic,
	}, nil
}

// Publish sends the event to the topic and waits for the server ack.
func (q *PubSubQueue) Publish(ctx context.Context, event *ReportEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal report event: %w", err)
	}

	result := q.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"org":    event.Org,
			"repo":   event.Repo,
			"branch": event.Branch,
		},
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Close flushes pending messages and releases the client.
func (q *PubSubQueue) Close() error {
	q.topic.Stop()
	return q.client.Close()
}
