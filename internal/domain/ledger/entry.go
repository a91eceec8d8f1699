// Package ledger holds the queryable transaction history projected into MongoDB
// from the outbox.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
)

// Entry is the history view of one transaction, keyed by reference.
// Later snapshots of the same reference replace earlier ones.
type Entry struct {
	Reference     string                   `json:"reference" bson:"reference"`
	TransactionID uuid.UUID                `json:"transaction_id" bson:"transaction_id"`
	UserID        uuid.UUID                `json:"user_id" bson:"user_id"`
	Type          shared.TransactionType   `json:"type" bson:"type"`
	Amount        int64                    `json:"amount" bson:"amount"` // Stored in kobo/minor units
	Currency      string                   `json:"currency" bson:"currency"`
	Status        shared.TransactionStatus `json:"status" bson:"status"`
	FailureReason string                   `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	BalanceAfter  *int64                   `json:"balance_after,omitempty" bson:"balance_after,omitempty"`
	BookID        *uuid.UUID               `json:"book_id,omitempty" bson:"book_id,omitempty"`
	Quantity      int                      `json:"quantity,omitempty" bson:"quantity,omitempty"`
	CorrelationID string                   `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time                `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at" bson:"updated_at"`
}

// NewEntry snapshots txn for the history store
func NewEntry(txn *payment.Transaction, correlationID string) *Entry {
	return &Entry{
		Reference:     txn.Reference,
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		Type:          txn.Type,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Status:        txn.Status,
		FailureReason: txn.FailureReason,
		BalanceAfter:  txn.BalanceAfter,
		BookID:        txn.BookID,
		Quantity:      txn.Quantity,
		CorrelationID: correlationID,
		CreatedAt:     txn.CreatedAt,
		UpdatedAt:     txn.UpdatedAt,
	}
}
