package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/ledger"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/settlement"
)

// AccountService reads wallet accounts
type AccountService interface {
	// GetAccount returns a NOT_FOUND error when the account doesn't exist
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

// PaymentService initiates and settles gateway-backed transactions.
// Implemented by settlement.Service.
type PaymentService interface {
	InitiateDeposit(ctx context.Context, req *settlement.DepositRequest) (*settlement.Checkout, error)
	InitiatePurchase(ctx context.Context, req *settlement.PurchaseRequest) (*settlement.Checkout, error)
	InitiateTransfer(ctx context.Context, req *settlement.TransferRequest) (*payment.Transaction, error)
	VerifyAndSettle(ctx context.Context, reference, correlationID string) (*payment.Transaction, error)
	GetTransaction(ctx context.Context, reference string, caller shared.Identity) (*payment.Transaction, error)
}

// InventoryService runs borrow, return and direct buy operations.
// Implemented by inventory.Service.
type InventoryService interface {
	GetBook(ctx context.Context, bookID uuid.UUID) (*book.Book, error)
	Borrow(ctx context.Context, bookID, userID uuid.UUID, dueDate time.Time) (*book.BorrowRecord, error)
	Return(ctx context.Context, bookID, userID uuid.UUID) error
	Buy(ctx context.Context, bookID, userID uuid.UUID, format string, quantity int) (*book.PurchaseRecord, error)
}

// HistoryService pages through the ledger history projected from the outbox
type HistoryService interface {
	// ListTransactions returns one page of a user's history, newest first,
	// and the user's total entry count
	ListTransactions(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error)
}

// NotificationService accepts signed gateway webhooks for asynchronous settlement
type NotificationService interface {
	AcceptWebhook(ctx context.Context, body []byte, signature, correlationID string) (*shared.PaymentEvent, error)
}
