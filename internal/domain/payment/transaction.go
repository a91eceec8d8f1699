package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bookstore-ledger/internal/domain/shared"
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrMissingUser      = errors.New("user id is required")
	ErrMissingReference = errors.New("reference is required")
)

// Transaction is the local record of one monetary operation reconciled against
// the payment gateway. Reference is the idempotency key for the whole flow.
type Transaction struct {
	ID             uuid.UUID                `json:"id"`
	Reference      string                   `json:"reference"`
	UserID         uuid.UUID                `json:"user_id"`
	Amount         int64                    `json:"amount"` // Minor units (kobo)
	Currency       string                   `json:"currency"`
	Type           shared.TransactionType   `json:"type"`
	Status         shared.TransactionStatus `json:"status"`
	Recipient      string                   `json:"recipient,omitempty"`
	RecipientRoute string                   `json:"recipient_route,omitempty"`
	BookID         *uuid.UUID               `json:"book_id,omitempty"`
	Format         string                   `json:"format,omitempty"`
	Quantity       int                      `json:"quantity,omitempty"`
	FailureReason  string                   `json:"failure_reason,omitempty"`
	GatewayStatus  string                   `json:"gateway_status,omitempty"`
	BalanceAfter   *int64                   `json:"balance_after,omitempty"`
	LastCheckedAt  *time.Time               `json:"last_checked_at,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// NewReference generates a fresh transaction reference
func NewReference() string {
	return uuid.NewString()
}

// NewTransaction creates a pending transaction. An empty reference is replaced
// by a generated one.
func NewTransaction(userID uuid.UUID, txType shared.TransactionType, amount int64, currency, reference string) (*Transaction, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if !txType.Valid() {
		return nil, ErrInvalidType
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if reference == "" {
		reference = NewReference()
	}

	now := time.Now().UTC()
	return &Transaction{
		ID:        uuid.New(),
		Reference: reference,
		UserID:    userID,
		Amount:    amount,
		Currency:  currency,
		Type:      txType,
		Status:    shared.TransactionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsPending reports whether the transaction can still transition
func (t *Transaction) IsPending() bool {
	return t.Status == shared.TransactionStatusPending
}

// OwnedBy reports whether userID is the owner of the transaction
func (t *Transaction) OwnedBy(userID uuid.UUID) bool {
	return t.UserID == userID
}

// Age returns how long the transaction has existed at now
func (t *Transaction) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}
