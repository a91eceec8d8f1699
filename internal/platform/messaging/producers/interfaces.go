package producers

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/bookstore-ledger/internal/domain/shared"
)

// PaymentEventPublisher hands accepted gateway notifications to the processor
type PaymentEventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event *shared.PaymentEvent) error
	Close() error
}

// DeadLetterPublisher parks messages the processor cannot decode
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
