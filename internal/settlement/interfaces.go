package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
)

// TransactionValidator checks initiation requests before anything is persisted
type TransactionValidator interface {
	ValidateDeposit(req *DepositRequest) error
	ValidateTransfer(req *TransferRequest) error
	ValidatePurchase(req *PurchaseRequest) error
}

// AccountManager reads wallets and applies balance effects inside a settlement
// transaction. Withdrawals hold their amount from initiation until they are
// captured at settlement or released on failure.
type AccountManager interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error)
	ApplyCredit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (int64, error)
	ReserveFunds(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error
	ReleaseFunds(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error
	CaptureFunds(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (int64, error)
}

// InventoryManager prices purchases and applies their stock effect at settlement
type InventoryManager interface {
	// CheckAvailability returns the book when the format exists and its live
	// stock covers quantity
	CheckAvailability(ctx context.Context, bookID uuid.UUID, format book.Format, quantity int) (*book.Book, error)

	// ApplyPurchase decrements stock before writing anything else, so an
	// ErrInsufficientStock leaves the transaction untouched
	ApplyPurchase(ctx context.Context, tx pgx.Tx, txn *payment.Transaction) error
}

// OutboxManager writes the history snapshot of a transaction in the same transaction as its change
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, txn *payment.Transaction, correlationID string) error
}

// FailureRecorder moves a pending transaction to failed. It reports false when
// the transaction had already left pending.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, reference string, reason shared.FailureReason, gatewayStatus, correlationID string) (bool, error)
}
