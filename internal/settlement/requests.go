package settlement

import (
	"github.com/google/uuid"

	"github.com/bookstore-ledger/internal/domain/book"
)

// DepositRequest funds a wallet through a hosted checkout
type DepositRequest struct {
	UserID        uuid.UUID
	Amount        int64
	Reference     string
	CorrelationID string
}

// TransferRequest pays wallet funds out to a bank account
type TransferRequest struct {
	UserID        uuid.UUID
	Amount        int64
	AccountNumber string
	BankCode      string
	Reference     string
	CorrelationID string
}

// PurchaseRequest buys copies of a book through a hosted checkout
type PurchaseRequest struct {
	UserID        uuid.UUID
	BookID        uuid.UUID
	Format        book.Format
	Quantity      int
	Reference     string
	CorrelationID string
}

// Checkout is returned by the initiate operations that need the payer to
// complete a hosted payment
type Checkout struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
	Amount           int64  `json:"amount"`
}
