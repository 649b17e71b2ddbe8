//go:build integration

package submission_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"kycengine/internal/platform/config"
	"kycengine/internal/platform/kafka"
	"kycengine/internal/submission"
	"kycengine/pkg/testutil/containers"
)

func TestKafkaPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	broker := containers.GetManager().GetRedpanda(t).Broker
	const topic = "kyc.submissions.test"

	producer, err := kafka.NewProducer(ctx, config.KafkaConfig{
		Brokers:         []string{broker},
		SubmissionTopic: topic,
		ClientID:        "kycengine-test",
	})
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, kafka.EnsureTopic(ctx, producer, topic, 1, 1))

	doc, err := submission.Convert(approvedCase(t))
	require.NoError(t, err)
	pub := submission.NewKafkaPublisher(producer, topic)
	require.NoError(t, pub.Publish(ctx, submission.Message{
		Key:       doc.Payload.CaseID,
		Value:     doc.Bytes,
		Digest:    doc.Digest,
		Priority:  "HIGH",
		Reference: "ONB-" + doc.Payload.CaseRef,
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.NotEmpty(t, records)

	rec := records[0]
	assert.Equal(t, doc.Payload.CaseID, string(rec.Key))
	assert.Equal(t, doc.Bytes, rec.Value)
	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, doc.Digest, headers["digest"])
	assert.Equal(t, "HIGH", headers["priority"])
}
