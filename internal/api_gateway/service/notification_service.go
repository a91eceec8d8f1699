package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/platform/gateway/paystack"
	"github.com/bookstore-ledger/internal/platform/messaging/producers"
)

// NotificationServiceImpl implements the NotificationService interface
type NotificationServiceImpl struct {
	signer   *paystack.Signer
	producer producers.PaymentEventPublisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewNotificationService creates a webhook intake service
func NewNotificationService(logger *slog.Logger, signer *paystack.Signer, producer producers.PaymentEventPublisher) NotificationService {
	return &NotificationServiceImpl{
		signer:   signer,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// AcceptWebhook authenticates the notification and queues its reference for
// settlement. The body is never trusted beyond the reference: the processor
// re-verifies with the gateway.
func (s *NotificationServiceImpl) AcceptWebhook(ctx context.Context, body []byte, signature, correlationID string) (*shared.PaymentEvent, error) {
	if !s.signer.Verify(body, signature) {
		s.logger.Warn("Rejected webhook with invalid signature", "correlation_id", correlationID)
		return nil, shared.NewError(shared.KindUnauthorized, "", nil, "invalid webhook signature")
	}

	parsed, err := paystack.ParseEvent(body)
	if err != nil {
		s.logger.Warn("Rejected unreadable webhook", "correlation_id", correlationID, "error", err)
		return nil, shared.NewError(shared.KindInvalidInput, "", err, "webhook payload has no usable reference")
	}

	event := &shared.PaymentEvent{
		Event:         parsed.Event,
		Reference:     parsed.Data.Reference,
		CorrelationID: correlationID,
		ReceivedAt:    s.now().UTC(),
	}
	if err := s.producer.PublishPaymentEvent(ctx, event); err != nil {
		s.logger.Error("Failed to queue payment event",
			"reference", event.Reference,
			"correlation_id", correlationID,
			"error", err,
		)
		return nil, shared.NewError(shared.KindUnavailable, event.Reference, err, "notification could not be queued")
	}

	s.logger.Info("Queued payment event",
		"reference", event.Reference,
		"event", event.Event,
		"correlation_id", correlationID,
	)
	return event, nil
}
