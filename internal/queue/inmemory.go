package queue

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryQueue implements Publisher using a buffered channel.
// Consumers in the same process read from Events.
type InMemoryQueue struct {
	ch     chan *ReportEvent
	closed bool
	mu     sync.RWMutex
}

// InMemoryConfig holds configuration for creating an InMemoryQueue.
type InMemoryConfig struct {
	// BufferSize is the channel buffer size (default: 100)
	BufferSize int
}

// NewInMemoryQueue creates a new InMemoryQueue instance.
func NewInMemoryQueue(cfg InMemoryConfig) *InMemoryQueue {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 100
	}

	return &InMemoryQueue{
		ch: make(chan *ReportEvent, bufferSize),
	}
}

// Publish sends an event to the channel, blocking while the buffer is full.
func (q *InMemoryQueue) Publish(ctx context.Context, event *ReportEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish cancelled: %w", ctx.Err())
	}
}

// Events returns the channel events are delivered on.
// It is closed by Close.
func (q *InMemoryQueue) Events() <-chan *ReportEvent {
	return q.ch
}

// Close closes the channel and prevents further publishing.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.ch)
	return nil
}
