package handler

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/ledger"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/settlement"
)

// Amount is a major-unit decimal given as a JSON string ("1500.50") or number
// (1500.50). The literal text is kept so no float rounding happens.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	*a = Amount(raw)
	return nil
}

// MinorUnits converts the amount to kobo
func (a Amount) MinorUnits() (int64, error) {
	minor, err := shared.ParseAmount(string(a))
	if err != nil {
		return 0, shared.NewError(shared.KindInvalidInput, "", err, "%s", err.Error())
	}
	return minor, nil
}

// InitializePaymentRequest opens a wallet deposit
type InitializePaymentRequest struct {
	Amount    Amount `json:"amount" binding:"required"`
	Reference string `json:"reference,omitempty"`
}

// VerifyPaymentRequest asks for settlement of a reference
type VerifyPaymentRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// TransferRequest pays wallet funds out to a bank account
type TransferRequest struct {
	Amount        Amount `json:"amount" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	BankCode      string `json:"bank_code" binding:"required"`
	Reference     string `json:"reference,omitempty"`
}

// PurchaseRequest buys a book through the gateway
type PurchaseRequest struct {
	BookID    string `json:"book_id" binding:"required,uuid"`
	Format    string `json:"format" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0,max=1000"`
	Reference string `json:"reference,omitempty"`
}

// BorrowRequest loans a physical copy
type BorrowRequest struct {
	BookID  string    `json:"book_id" binding:"required,uuid"`
	DueDate time.Time `json:"due_date" binding:"required"`
}

// ReturnRequest closes a loan
type ReturnRequest struct {
	BookID string `json:"book_id" binding:"required,uuid"`
}

// BuyRequest buys copies without going through the gateway
type BuyRequest struct {
	BookID   string `json:"book_id" binding:"required,uuid"`
	Format   string `json:"format" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0,max=1000"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int    `form:"page,default=1" binding:"min=1"`
	PerPage int    `form:"per_page,default=10" binding:"min=1,max=100"`
	UserID  string `form:"user_id" binding:"omitempty,uuid"`
}

// CheckoutResponse points the payer at the hosted payment page
type CheckoutResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
	Amount           string `json:"amount"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	Reference     string  `json:"reference"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	FailureReason string  `json:"failure_reason,omitempty"`
	Balance       *string `json:"balance,omitempty"`
	BookID        string  `json:"book_id,omitempty"`
	Format        string  `json:"format,omitempty"`
	Quantity      int     `json:"quantity,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// AccountResponse represents a wallet in API responses
type AccountResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role      string `json:"role"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
}

// FormatResponse is the availability of one edition
type FormatResponse struct {
	Format    string `json:"format"`
	Stock     *int   `json:"stock,omitempty"`
	Available bool   `json:"available"`
}

// BookResponse represents a catalog entry in API responses
type BookResponse struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Author  string           `json:"author"`
	Price   string           `json:"price"`
	Sales   int              `json:"sales"`
	Formats []FormatResponse `json:"formats"`
}

// BorrowResponse confirms a loan
type BorrowResponse struct {
	BorrowRecordID string `json:"borrow_record_id"`
	DueDate        string `json:"due_date"`
}

// BuyResponse confirms a direct purchase
type BuyResponse struct {
	PurchaseRecordID string `json:"purchase_record_id"`
	Format           string `json:"format"`
	Quantity         int    `json:"quantity"`
	Amount           string `json:"amount"`
}

func mapCheckoutToResponse(checkout *settlement.Checkout) CheckoutResponse {
	return CheckoutResponse{
		AuthorizationURL: checkout.AuthorizationURL,
		AccessCode:       checkout.AccessCode,
		Reference:        checkout.Reference,
		Amount:           shared.FormatAmount(checkout.Amount),
	}
}

func mapTransactionToResponse(txn *payment.Transaction) TransactionResponse {
	resp := TransactionResponse{
		Reference:     txn.Reference,
		Type:          string(txn.Type),
		Status:        string(txn.Status),
		Amount:        shared.FormatAmount(txn.Amount),
		Currency:      txn.Currency,
		FailureReason: txn.FailureReason,
		Format:        txn.Format,
		Quantity:      txn.Quantity,
		CreatedAt:     txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     txn.UpdatedAt.Format(time.RFC3339),
	}
	if txn.BalanceAfter != nil {
		balance := shared.FormatAmount(*txn.BalanceAfter)
		resp.Balance = &balance
	}
	if txn.BookID != nil {
		resp.BookID = txn.BookID.String()
	}
	return resp
}

func mapEntryToResponse(entry *ledger.Entry) TransactionResponse {
	resp := TransactionResponse{
		Reference:     entry.Reference,
		Type:          string(entry.Type),
		Status:        string(entry.Status),
		Amount:        shared.FormatAmount(entry.Amount),
		Currency:      entry.Currency,
		FailureReason: entry.FailureReason,
		Quantity:      entry.Quantity,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     entry.UpdatedAt.Format(time.RFC3339),
	}
	if entry.BalanceAfter != nil {
		balance := shared.FormatAmount(*entry.BalanceAfter)
		resp.Balance = &balance
	}
	if entry.BookID != nil {
		resp.BookID = entry.BookID.String()
	}
	return resp
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		Email:     acc.Email,
		Name:      acc.Name,
		Role:      acc.Role,
		Balance:   shared.FormatAmount(acc.Balance),
		Available: shared.FormatAmount(acc.Available()),
	}
}

func mapBookToResponse(b *book.Book) BookResponse {
	formats := make([]FormatResponse, 0, len(b.Formats))
	for _, f := range b.Formats {
		formats = append(formats, FormatResponse{
			Format:    string(f.Format),
			Stock:     f.Stock,
			Available: f.Covers(1),
		})
	}
	return BookResponse{
		ID:      b.ID.String(),
		Title:   b.Title,
		Author:  b.Author,
		Price:   shared.FormatAmount(b.Price),
		Sales:   b.Sales,
		Formats: formats,
	}
}
