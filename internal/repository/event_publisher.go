package repository

import (
	"context"

	"CoinCast/internal/domain/repository"
	pkgkafka "CoinCast/pkg/kafka"
)

// KafkaEventPublisher implements EventPublisher on Kafka. Events are
// keyed by symbol so per-instrument ordering is preserved.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventPublisher creates a Kafka-backed event publisher.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	return p.producer.Publish(ctx, p.topic, []byte(key), event)
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

// NopEventPublisher discards events. Used when Kafka is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(context.Context, string, interface{}) error {
	return nil
}

func (NopEventPublisher) Close() error {
	return nil
}
