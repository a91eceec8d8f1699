package book

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository reads the catalog and adjusts stock counters
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Book, error)

	// DecrementStock subtracts quantity only if the live tracked stock covers it.
	// Returns ErrInsufficientStock otherwise, including for untracked formats.
	DecrementStock(ctx context.Context, bookID uuid.UUID, format Format, quantity int) error

	// IncrementStock adds quantity to a tracked format. It reports false and
	// changes nothing when the format has no tracked stock.
	IncrementStock(ctx context.Context, bookID uuid.UUID, format Format, quantity int) (bool, error)
	AddSales(ctx context.Context, bookID uuid.UUID, quantity int) error
	WithTx(tx pgx.Tx) Repository
}

// RecordRepository persists borrow and purchase records
type RecordRepository interface {
	// CreateBorrow returns ErrDuplicateBorrow when the user already holds the book
	CreateBorrow(ctx context.Context, record *BorrowRecord) error

	// DeleteBorrow removes and returns the open record. Returns ErrBorrowNotFound if none exists.
	DeleteBorrow(ctx context.Context, userID, bookID uuid.UUID) (*BorrowRecord, error)
	CreatePurchase(ctx context.Context, record *PurchaseRecord) error
	WithTx(tx pgx.Tx) RecordRepository
}

// ErrBookNotFound indicates missing book
type ErrBookNotFound struct {
	BookID uuid.UUID
}

func (e ErrBookNotFound) Error() string {
	return "book not found: " + e.BookID.String()
}

// Is matches any ErrBookNotFound when the target has no id
func (e ErrBookNotFound) Is(target error) bool {
	t, ok := target.(ErrBookNotFound)
	if !ok {
		return false
	}
	return t.BookID == uuid.Nil || t.BookID == e.BookID
}

// ErrInsufficientStock indicates a conditional decrement did not apply
type ErrInsufficientStock struct {
	BookID uuid.UUID
	Format Format
}

func (e ErrInsufficientStock) Error() string {
	return "insufficient " + string(e.Format) + " stock for book: " + e.BookID.String()
}

// Is matches any ErrInsufficientStock
func (e ErrInsufficientStock) Is(target error) bool {
	_, ok := target.(ErrInsufficientStock)
	return ok
}

// ErrBorrowNotFound indicates no open borrow record exists
type ErrBorrowNotFound struct {
	UserID uuid.UUID
	BookID uuid.UUID
}

func (e ErrBorrowNotFound) Error() string {
	return "no open borrow record for book " + e.BookID.String() + " and user " + e.UserID.String()
}

// Is matches any ErrBorrowNotFound
func (e ErrBorrowNotFound) Is(target error) bool {
	_, ok := target.(ErrBorrowNotFound)
	return ok
}

// ErrDuplicateBorrow indicates the user already holds an open borrow of the book
type ErrDuplicateBorrow struct {
	UserID uuid.UUID
	BookID uuid.UUID
}

func (e ErrDuplicateBorrow) Error() string {
	return "book " + e.BookID.String() + " is already borrowed by user " + e.UserID.String()
}

// Is matches any ErrDuplicateBorrow
func (e ErrDuplicateBorrow) Is(target error) bool {
	_, ok := target.(ErrDuplicateBorrow)
	return ok
}
