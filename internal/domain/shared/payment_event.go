package shared

import "time"

// PaymentEvent is the Kafka message produced for every accepted gateway notification.
// It carries only the reference; the processor re-verifies with the gateway before
// settling, so the notification body itself is never trusted.
type PaymentEvent struct {
	Event         string    `json:"event"`
	Reference     string    `json:"reference"`
	CorrelationID string    `json:"correlation_id"`
	ReceivedAt    time.Time `json:"received_at"`
}

// SettlementSource identifies what triggered a settlement attempt
type SettlementSource string

const (
	SettlementSourceWebhook SettlementSource = "webhook"
	SettlementSourceSweep   SettlementSource = "sweep"
)

// SettlementJob is a unit of work handed to the processor's worker pool
type SettlementJob struct {
	Reference     string
	Source        SettlementSource
	CorrelationID string
}
