// Package kafka forwards audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"verichain/internal/platform/kafka/producer"
	audit "verichain/pkg/platform/audit"
)

// Sink publishes each event as a JSON record. Records are keyed by
// credential ID when present so a credential's history stays on one
// partition, otherwise by actor.
type Sink struct {
	sender producer.Sender
	topic  string
}

func NewSink(sender producer.Sender, topic string) *Sink {
	return &Sink{sender: sender, topic: topic}
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	key := event.CredentialID
	if key == "" {
		key = event.Actor
	}
	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(key),
		Value: value,
		Headers: map[string]string{
			"action":   event.Action,
			"category": string(audit.AuditEvent(event.Action).Category()),
		},
	}
	if err := s.sender.Produce(ctx, msg); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}
