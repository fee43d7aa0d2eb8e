package queue

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSubConfig_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		config  PubSubConfig
		wantErr string
	}{
		{
			name:    "missing project ID",
			config:  PubSubConfig{TopicName: "topic"},
			wantErr: "project ID is required",
		},
		{
			name:    "missing topic",
			config:  PubSubConfig{ProjectID: "project"},
			wantErr: "topic name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewPubSubQueue(ctx, tt.config)
			require.Error(t, err)
			assert.Nil(t, q)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPubSubQueue_Publish(t *testing.T) {
	srv := pstest.NewServer()
	defer srv.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", srv.Addr)

	ctx := context.Background()
	q, err := NewPubSubQueue(ctx, PubSubConfig{
		ProjectID:         "test-project",
		TopicName:         "diffcover-reports",
		CreateIfNotExists: true,
	})
	require.NoError(t, err)
	defer q.Close()

	require.Error(t, q.Publish(ctx, nil))

	event := NewReportEvent("grafana", "diffcover", "main")
	event.Percent = 50
	require.NoError(t, q.Publish(ctx, event))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "main", msgs[0].Attributes["branch"])

	var decoded ReportEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, 50.0, decoded.Percent)
}
