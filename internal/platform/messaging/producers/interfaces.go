// Package producers provides Kafka publishers used by the booking event
// pipeline, currently the dead letter queue for poisoned settlement events.
package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// DeadLetterPublisher handles publishing messages to a dead letter queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
