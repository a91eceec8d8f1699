package producers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDLQProducer_PublishToDLQ(t *testing.T) {
	ctx := context.Background()

	t.Run("wraps original message", func(t *testing.T) {
		writer := new(MockKafkaWriter)
		producer := &DLQProducer{
			logger:      newTestLogger(),
			writer:      writer,
			dlqTopic:    "payment_events_dlq",
			sourceTopic: "payment_events",
		}
		original := []byte(`{"event":`)

		writer.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != "ref-9" {
				return false
			}
			var parked deadLetter
			if err := json.Unmarshal(msgs[0].Value, &parked); err != nil {
				return false
			}
			return parked.SourceTopic == "payment_events" &&
				parked.OriginalValue == string(original) &&
				parked.Reason == "malformed payment event" &&
				parked.ParkedAt != ""
		})).Return(nil).Once()

		require.NoError(t, producer.PublishToDLQ(ctx, "ref-9", original, "malformed payment event"))
		writer.AssertExpectations(t)
	})

	t.Run("writer error", func(t *testing.T) {
		writer := new(MockKafkaWriter)
		producer := &DLQProducer{logger: newTestLogger(), writer: writer, dlqTopic: "payment_events_dlq"}
		writeErr := errors.New("broker down")
		writer.On("WriteMessages", ctx, mock.Anything).Return(writeErr).Once()

		err := producer.PublishToDLQ(ctx, "k", []byte("v"), "bad")
		assert.ErrorIs(t, err, writeErr)
	})

	t.Run("disabled producer", func(t *testing.T) {
		var producer *DLQProducer
		err := producer.PublishToDLQ(ctx, "k", []byte("v"), "bad")
		assert.ErrorIs(t, err, ErrDLQDisabled)
	})
}

func TestDLQProducer_Close(t *testing.T) {
	t.Run("closes writer", func(t *testing.T) {
		writer := new(MockKafkaWriter)
		producer := &DLQProducer{logger: newTestLogger(), writer: writer, dlqTopic: "dlq"}
		writer.On("Close").Return(nil).Once()

		require.NoError(t, producer.Close())
		writer.AssertExpectations(t)
	})

	t.Run("close error", func(t *testing.T) {
		writer := new(MockKafkaWriter)
		producer := &DLQProducer{logger: newTestLogger(), writer: writer, dlqTopic: "dlq"}
		closeErr := errors.New("close failed")
		writer.On("Close").Return(closeErr).Once()

		assert.ErrorIs(t, producer.Close(), closeErr)
	})

	t.Run("nil producer", func(t *testing.T) {
		var producer *DLQProducer
		assert.NoError(t, producer.Close())
	})
}
