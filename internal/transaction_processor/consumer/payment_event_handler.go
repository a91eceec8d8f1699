package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/platform/messaging/producers"
	"github.com/bookstore-ledger/internal/transaction_processor/service"
)

var errMissingReference = errors.New("payment event has no reference")

// PaymentEventHandler turns payment_events messages into settlement jobs
type PaymentEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewPaymentEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *PaymentEventHandler {
	return &PaymentEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage settles the referenced transaction. Undecodable messages are
// parked in the DLQ and acknowledged.
func (h *PaymentEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := decodeEvent(value)
	if err != nil {
		return h.deadLetter(ctx, key, value, err)
	}

	logger := h.logger.With("reference", event.Reference, "event", event.Event)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}
	logger.Info("Received payment event")

	job := &shared.SettlementJob{
		Reference:     event.Reference,
		Source:        shared.SettlementSourceWebhook,
		CorrelationID: event.CorrelationID,
	}
	if err := h.processingService.ProcessSettlement(ctx, job); err != nil {
		logger.Error("Failed to process payment event", "error", err)
		return fmt.Errorf("processing payment event for %s failed: %w", event.Reference, err)
	}
	return nil
}

func decodeEvent(value []byte) (*shared.PaymentEvent, error) {
	var event shared.PaymentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment event: %w", err)
	}
	if event.Reference == "" {
		return nil, errMissingReference
	}
	return &event, nil
}

func (h *PaymentEventHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	h.logger.Error("Malformed payment event", "message_key", string(key), "error", cause)

	if h.producer == nil {
		return cause
	}
	if err := h.producer.PublishToDLQ(ctx, string(key), value, cause.Error()); err != nil {
		h.logger.Error("Failed to publish malformed payment event to DLQ",
			"dlq_error", err,
			"message_key", string(key),
		)
		return cause
	}
	return nil
}
