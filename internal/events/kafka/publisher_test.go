//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"campaign/internal/events"
	"campaign/internal/platform/config"
	"campaign/pkg/testutil/containers"
)

func TestPublishRoundTrip(t *testing.T) {
	broker := containers.GetManager().GetRedpanda(t).Broker
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.KafkaConfig{Brokers: []string{broker}, Topic: "campaign-events-test", Partitions: 1, ReplicationFactor: 1}
	pub, err := New(ctx, cfg)
	require.NoError(t, err)
	defer pub.Close()

	// A second ensure on an existing topic is not an error.
	require.NoError(t, EnsureTopic(ctx, pub.client, cfg.Topic, cfg.Partitions, cfg.ReplicationFactor))

	event := events.New(ctx, events.TypeReportSubmitted, "station-1", map[string]any{"table_number": 1})
	require.NoError(t, pub.Publish(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)

	rec := records[0]
	assert.Equal(t, "station-1", string(rec.Key))
	var got events.Event
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, events.TypeReportSubmitted, got.Type)

	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(events.TypeReportSubmitted), headers["event_type"])
}
