package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/shared"
)

// Outcome holds the fields written together with a status transition
type Outcome struct {
	FailureReason string
	GatewayStatus string
	BalanceAfter  *int64
}

// Repository is the ledger store for transactions keyed by reference
type Repository interface {
	// Create inserts a pending transaction. Returns ErrDuplicateReference when
	// the reference already exists in any status.
	Create(ctx context.Context, txn *Transaction) error
	GetByReference(ctx context.Context, reference string) (*Transaction, error)

	// LockForUpdate reads the transaction and holds its row lock until the
	// surrounding database transaction ends. Only meaningful inside WithTx.
	LockForUpdate(ctx context.Context, reference string) (*Transaction, error)

	// Transition moves a pending transaction to a final status. It reports false
	// when the transaction was no longer pending, in which case nothing changed.
	Transition(ctx context.Context, reference string, to shared.TransactionStatus, outcome Outcome) (bool, error)

	// RecordGatewayStatus stores the last status the gateway reported for a pending transaction
	RecordGatewayStatus(ctx context.Context, reference, gatewayStatus string) error

	// ClaimStale stamps up to limit pending transactions created before cutoff
	// with checkedAt and returns them. Transactions never checked come first,
	// then the least recently checked, so repeated claims rotate through all
	// stale transactions.
	ClaimStale(ctx context.Context, cutoff, checkedAt time.Time, limit int) ([]*Transaction, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates missing transaction
type ErrTransactionNotFound struct {
	Reference string
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.Reference
}

// Is matches any ErrTransactionNotFound when the target has no reference
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	return t.Reference == "" || t.Reference == e.Reference
}

// ErrDuplicateReference indicates reference uniqueness violation
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "transaction reference already used: " + e.Reference
}

// Is matches any ErrDuplicateReference when the target has no reference
func (e ErrDuplicateReference) Is(target error) bool {
	t, ok := target.(ErrDuplicateReference)
	if !ok {
		return false
	}
	return t.Reference == "" || t.Reference == e.Reference
}
