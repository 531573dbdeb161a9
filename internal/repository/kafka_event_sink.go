package repository

import (
	"context"

	"DigitPulse/internal/domain/models"
	"DigitPulse/internal/domain/repository"
	pkgkafka "DigitPulse/pkg/kafka"
)

// KafkaEventSink publishes structured engine events to a topic. Events
// are keyed by type so consumers can partition by event kind.
type KafkaEventSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventSink creates the sink.
func NewKafkaEventSink(producer *pkgkafka.Producer, topic string) repository.EventSink {
	return &KafkaEventSink{producer: producer, topic: topic}
}

func (s *KafkaEventSink) Publish(ctx context.Context, ev *models.EngineEvent) error {
	return s.producer.Publish(ctx, s.topic, []byte(ev.Type), ev)
}

func (s *KafkaEventSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
