// Package book models the catalog entries whose stock the inventory
// operations borrow, return and buy act upon.
package book

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookstore-ledger/internal/domain/shared"
)

// Format is a purchasable or borrowable edition of a book
type Format string

const (
	FormatPhysical  Format = "physical"
	FormatEbook     Format = "ebook"
	FormatAudiobook Format = "audiobook"
)

var (
	ErrUnknownFormat   = errors.New("unknown book format")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 1000")
	ErrDueDateInPast   = errors.New("due date must be in the future")
)

// MaxQuantity is the largest number of copies one order may hold
const MaxQuantity = 1000

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPhysical, FormatEbook, FormatAudiobook:
		return Format(s), nil
	}
	return "", ErrUnknownFormat
}

// FormatStock is the availability of one format. A nil Stock means the
// format has no tracked inventory (digital editions).
type FormatStock struct {
	Format Format `json:"format"`
	Stock  *int   `json:"stock,omitempty"`
}

// Tracked reports whether the format carries a physical stock counter
func (f FormatStock) Tracked() bool {
	return f.Stock != nil
}

// Covers reports whether the snapshot stock covers quantity. Untracked
// formats always do.
func (f FormatStock) Covers(quantity int) bool {
	return !f.Tracked() || *f.Stock >= quantity
}

// Book is a catalog entry
type Book struct {
	ID        uuid.UUID     `json:"id"`
	Title     string        `json:"title"`
	Author    string        `json:"author"`
	Price     int64         `json:"price"` // Minor units per copy
	Sales     int           `json:"sales"`
	Formats   []FormatStock `json:"formats"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// FormatStock returns the availability entry for format, if the book offers it
func (b *Book) FormatStock(format Format) (FormatStock, bool) {
	for _, f := range b.Formats {
		if f.Format == format {
			return f, true
		}
	}
	return FormatStock{}, false
}

// BorrowRecord is an open loan of a physical copy
type BorrowRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	BookID    uuid.UUID `json:"book_id"`
	Format    Format    `json:"format"`
	DueDate   time.Time `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBorrowRecord creates a loan of a physical copy due at dueDate
func NewBorrowRecord(userID, bookID uuid.UUID, dueDate, now time.Time) (*BorrowRecord, error) {
	if !dueDate.After(now) {
		return nil, ErrDueDateInPast
	}
	return &BorrowRecord{
		ID:        uuid.New(),
		UserID:    userID,
		BookID:    bookID,
		Format:    FormatPhysical,
		DueDate:   dueDate,
		CreatedAt: now,
	}, nil
}

// PurchaseRecord is a completed sale. Reference links gateway-paid purchases
// to their transaction and is empty for direct buys.
type PurchaseRecord struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	BookID      uuid.UUID `json:"book_id"`
	Format      Format    `json:"format"`
	Quantity    int       `json:"quantity"`
	Amount      int64     `json:"amount"`
	Reference   string    `json:"reference,omitempty"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// NewPurchaseRecord prices a purchase at unitPrice times quantity
func NewPurchaseRecord(userID, bookID uuid.UUID, format Format, quantity int, unitPrice int64, reference string) (*PurchaseRecord, error) {
	if quantity <= 0 || quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	amount, err := shared.MultiplyAmount(unitPrice, quantity)
	if err != nil {
		return nil, fmt.Errorf("purchase total: %w", err)
	}
	return &PurchaseRecord{
		ID:          uuid.New(),
		UserID:      userID,
		BookID:      bookID,
		Format:      format,
		Quantity:    quantity,
		Amount:      amount,
		Reference:   reference,
		PurchasedAt: time.Now().UTC(),
	}, nil
}
