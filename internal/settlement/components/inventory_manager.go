package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/settlement"
)

type InventoryManagerImpl struct {
	bookRepo   book.Repository
	recordRepo book.RecordRepository
	logger     *slog.Logger
}

func NewInventoryManager(bookRepo book.Repository, recordRepo book.RecordRepository, logger *slog.Logger) settlement.InventoryManager {
	return &InventoryManagerImpl{
		bookRepo:   bookRepo,
		recordRepo: recordRepo,
		logger:     logger,
	}
}

// CheckAvailability returns the book if format is offered and its stock covers quantity
func (m *InventoryManagerImpl) CheckAvailability(ctx context.Context, bookID uuid.UUID, format book.Format, quantity int) (*book.Book, error) {
	b, err := m.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, book.ErrBookNotFound{}) {
			return nil, shared.NewError(shared.KindNotFound, "", err, "book %s not found", bookID)
		}
		return nil, shared.NewError(shared.KindInternal, "", err, "failed to load book")
	}

	stock, ok := b.FormatStock(format)
	if !ok {
		return nil, shared.NewError(shared.KindUnavailable, "", nil, "book %s is not available as %s", bookID, format)
	}
	if !stock.Covers(quantity) {
		m.logger.Info("Purchase exceeds stock", "book_id", bookID.String(), "format", format, "quantity", quantity, "stock", *stock.Stock)
		return nil, shared.NewError(shared.KindUnavailable, "", book.ErrInsufficientStock{BookID: bookID, Format: format},
			"not enough %s copies of book %s in stock", format, bookID)
	}
	return b, nil
}

// ApplyPurchase takes stock, records the sale and counts it, all within tx.
// A book or format that disappeared since initiation reports ErrInsufficientStock.
func (m *InventoryManagerImpl) ApplyPurchase(ctx context.Context, tx pgx.Tx, txn *payment.Transaction) error {
	if txn.BookID == nil || txn.Quantity <= 0 {
		return fmt.Errorf("purchase %s has no book line", txn.Reference)
	}
	bookID := *txn.BookID
	format := book.Format(txn.Format)
	books := m.bookRepo.WithTx(tx)

	b, err := books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, book.ErrBookNotFound{}) {
			return book.ErrInsufficientStock{BookID: bookID, Format: format}
		}
		return fmt.Errorf("failed to load book for purchase %s: %w", txn.Reference, err)
	}
	stock, ok := b.FormatStock(format)
	if !ok {
		return book.ErrInsufficientStock{BookID: bookID, Format: format}
	}

	if stock.Tracked() {
		if err := books.DecrementStock(ctx, bookID, format, txn.Quantity); err != nil {
			return err
		}
	}

	record, err := book.NewPurchaseRecord(txn.UserID, bookID, format, txn.Quantity, txn.Amount/int64(txn.Quantity), txn.Reference)
	if err != nil {
		return err
	}
	// The paid amount is authoritative even if the price changed since checkout.
	record.Amount = txn.Amount

	if err := m.recordRepo.WithTx(tx).CreatePurchase(ctx, record); err != nil {
		return fmt.Errorf("failed to record purchase %s: %w", txn.Reference, err)
	}
	if err := books.AddSales(ctx, bookID, txn.Quantity); err != nil {
		return fmt.Errorf("failed to count sales for purchase %s: %w", txn.Reference, err)
	}

	m.logger.Info("Purchase applied", "reference", txn.Reference, "book_id", bookID.String(), "format", format, "quantity", txn.Quantity)
	return nil
}
