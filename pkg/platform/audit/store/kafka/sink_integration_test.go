//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"verichain/internal/platform/kafka/producer"
	audit "verichain/pkg/platform/audit"
	"verichain/pkg/platform/audit/publisher"
	auditkafka "verichain/pkg/platform/audit/store/kafka"
	"verichain/pkg/platform/audit/store/memory"
	"verichain/pkg/testutil/containers"
)

type SinkIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestSinkIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SinkIntegrationSuite))
}

func (s *SinkIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	prod, err := producer.New(producer.Config{
		Brokers:         s.kafka.Brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *SinkIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *SinkIntegrationSuite) newTopic(ctx context.Context) string {
	topic := "audit-" + uuid.NewString()
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))
	return topic
}

func (s *SinkIntegrationSuite) TestAppendPublishesKeyedRecord() {
	ctx := context.Background()
	topic := s.newTopic(ctx)
	sink := auditkafka.NewSink(s.producer, topic)

	event := audit.Event{
		Timestamp:    time.Now().UTC().Truncate(time.Millisecond),
		Action:       string(audit.EventCredentialIssued),
		Actor:        "0x1111111111111111111111111111111111111111",
		Subject:      "0x2222222222222222222222222222222222222222",
		CredentialID: "7",
		TxRef:        "0xfeed",
	}
	s.Require().NoError(sink.Append(ctx, event))

	consumer, err := s.kafka.NewConsumer(ctx, "sink-"+uuid.NewString(), topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForMessage(ctx, consumer, 20*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "7"
	})
	s.Require().NotNil(record, "credential_issued record not delivered")

	var got audit.Event
	s.Require().NoError(json.Unmarshal(record.Value, &got))
	s.Equal(event.Action, got.Action)
	s.Equal(event.Subject, got.Subject)
	s.Equal(event.TxRef, got.TxRef)

	headers := map[string]string{}
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal(string(audit.EventCredentialIssued), headers["action"])
	s.NotEmpty(headers["category"])
}

func (s *SinkIntegrationSuite) TestPublisherFansOutToKafka() {
	ctx := context.Background()
	topic := s.newTopic(ctx)

	store := memory.NewInMemoryStore()
	pub := publisher.NewPublisher(store, publisher.WithSink(auditkafka.NewSink(s.producer, topic)))
	logger := audit.NewLogger(nil, pub)

	logger.Log(ctx, string(audit.EventSessionReset),
		"actor", "0x3333333333333333333333333333333333333333",
		"reason", "identity_change",
		"generation", uint64(5),
	)

	events, err := store.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 1)

	consumer, err := s.kafka.NewConsumer(ctx, "fanout-"+uuid.NewString(), topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForMessage(ctx, consumer, 20*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "0x3333333333333333333333333333333333333333"
	})
	s.Require().NotNil(record, "session_reset record not delivered")

	var got audit.Event
	s.Require().NoError(json.Unmarshal(record.Value, &got))
	s.Equal("identity_change", got.Reason)
	s.Equal(uint64(5), got.Generation)
}
