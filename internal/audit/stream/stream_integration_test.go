//go:build integration

package stream_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodian/internal/audit/stream"
	"custodian/internal/domain"
	id "custodian/pkg/domain"
	"custodian/pkg/testutil/containers"
)

func TestPublishIntegrityFailureToRedpanda(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	kafka := containers.GetManager().GetKafka(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	topic := "custodian.security.it"
	client, err := stream.NewClient(kafka.Brokers, topic)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, stream.EnsureTopic(ctx, client, topic, 1, 1))
	require.NoError(t, stream.EnsureTopic(ctx, client, topic, 1, 1), "ensure is idempotent")

	ev := domain.IntegrityEvent{
		OrganizationID: id.NewOrganizationID(),
		EvidenceID:     id.NewEvidenceID(),
		RecordID:       id.NewCustodyRecordID(),
		Sequence:       1,
		DetectedBy:     id.NewActorID(),
		DetectedAt:     time.Now(),
	}
	require.NoError(t, stream.New(client, topic).PublishIntegrityFailure(ctx, ev))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(kafka.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(records[0].Value, &msg))
	assert.Equal(t, ev.EvidenceID.String(), msg["evidence_id"])
	assert.Equal(t, ev.EvidenceID.String(), string(records[0].Key))
}
