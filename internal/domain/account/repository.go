package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// Credit atomically adds amount to the balance and returns the new balance
	Credit(ctx context.Context, id uuid.UUID, amount int64) (int64, error)

	// Reserve holds amount if the live available balance covers it and returns
	// the available balance left. Returns ErrInsufficientFunds otherwise.
	Reserve(ctx context.Context, id uuid.UUID, amount int64) (int64, error)

	// Release drops a hold of amount. Returns ErrNoHold if none is held.
	Release(ctx context.Context, id uuid.UUID, amount int64) error

	// Capture turns a hold of amount into a debit and returns the new balance.
	// Returns ErrNoHold if the hold is missing.
	Capture(ctx context.Context, id uuid.UUID, amount int64) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || t.AccountID == e.AccountID
}
