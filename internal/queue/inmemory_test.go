package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInMemoryQueue(t *testing.T) {
	q := NewInMemoryQueue(InMemoryConfig{})
	defer q.Close()
	assert.Equal(t, 100, cap(q.ch))

	q2 := NewInMemoryQueue(InMemoryConfig{BufferSize: 5})
	defer q2.Close()
	assert.Equal(t, 5, cap(q2.ch))
}

func TestInMemoryQueue_PublishAndReceive(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(InMemoryConfig{BufferSize: 10})

	first := NewReportEvent("o", "r", "main")
	second := NewReportEvent("o", "r", "feature")

	require.NoError(t, q.Publish(ctx, first))
	require.NoError(t, q.Publish(ctx, second))
	require.NoError(t, q.Close())

	var got []*ReportEvent
	for event := range q.Events() {
		got = append(got, event)
	}
	assert.Equal(t, []*ReportEvent{first, second}, got)
}

func TestInMemoryQueue_PublishValidation(t *testing.T) {
	q := NewInMemoryQueue(InMemoryConfig{})
	defer q.Close()

	err := q.Publish(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report event cannot be nil")
}

func TestInMemoryQueue_PublishAfterClose(t *testing.T) {
	q := NewInMemoryQueue(InMemoryConfig{})
	require.NoError(t, q.Close())
	// Closing twice is fine.
	require.NoError(t, q.Close())

	err := q.Publish(context.Background(), NewReportEvent("o", "r", "b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue is closed")
}

func TestInMemoryQueue_PublishCancelledWhenFull(t *testing.T) {
	q := NewInMemoryQueue(InMemoryConfig{BufferSize: 1})
	defer q.Close()

	require.NoError(t, q.Publish(context.Background(), NewReportEvent("o", "r", "b")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.Publish(ctx, NewReportEvent("o", "r", "b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryQueue_Concurrency(t *testing.T) {
	const publishers, perPublisher = 5, 20
	q := NewInMemoryQueue(InMemoryConfig{BufferSize: publishers * perPublisher})

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				assert.NoError(t, q.Publish(context.Background(), NewReportEvent("o", "r", "b")))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, q.Close())

	seen := map[string]bool{}
	for event := range q.Events() {
		seen[event.ID] = true
	}
	assert.Len(t, seen, publishers*perPublisher)
}
