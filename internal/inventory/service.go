// Package inventory lends and sells books against the physical stock counters.
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/platform/metrics"
	"github.com/bookstore-ledger/internal/platform/persistence"
)

// Operation names used for metrics and logs
const (
	OperationBorrow = "borrow"
	OperationReturn = "return"
	OperationBuy    = "buy"
)

// Service implements borrow, return and direct purchase of books
type Service struct {
	db      persistence.TxRunner
	books   book.Repository
	records book.RecordRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates an inventory service
func NewService(db persistence.TxRunner, books book.Repository, records book.RecordRepository, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		db:      db,
		books:   books,
		records: records,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// GetBook returns a catalog entry with its formats
func (s *Service) GetBook(ctx context.Context, bookID uuid.UUID) (*book.Book, error) {
	return s.loadBook(ctx, bookID)
}

// Borrow lends a physical copy to userID until dueDate. The record is written
// before the stock is taken so a failed decrement rolls both back.
func (s *Service) Borrow(ctx context.Context, bookID, userID uuid.UUID, dueDate time.Time) (*book.BorrowRecord, error) {
	if err := requireCaller(userID); err != nil {
		return nil, s.reject(OperationBorrow, err)
	}
	if bookID == uuid.Nil {
		return nil, s.reject(OperationBorrow, shared.NewError(shared.KindInvalidInput, "", nil, "book_id is required"))
	}
	record, err := book.NewBorrowRecord(userID, bookID, dueDate, s.now().UTC())
	if err != nil {
		return nil, s.reject(OperationBorrow, shared.NewError(shared.KindInvalidInput, "", err, "due_date must be in the future"))
	}

	b, err := s.loadBook(ctx, bookID)
	if err != nil {
		return nil, s.reject(OperationBorrow, err)
	}
	physical, ok := b.FormatStock(book.FormatPhysical)
	if !ok || !physical.Tracked() || !physical.Covers(1) {
		return nil, s.reject(OperationBorrow, shared.NewError(shared.KindUnavailable, "", nil, "no physical copy of book %s is available", bookID))
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.records.WithTx(tx).CreateBorrow(ctx, record); err != nil {
			return err
		}
		return s.books.WithTx(tx).DecrementStock(ctx, bookID, book.FormatPhysical, 1)
	})
	if err != nil {
		switch {
		case errors.Is(err, book.ErrDuplicateBorrow{}):
			return nil, s.reject(OperationBorrow, shared.NewError(shared.KindDuplicate, "", err, "book %s is already borrowed by this user", bookID))
		case errors.Is(err, book.ErrInsufficientStock{}):
			return nil, s.reject(OperationBorrow, shared.NewError(shared.KindUnavailable, "", err, "no physical copy of book %s is available", bookID))
		}
		return nil, s.fail(OperationBorrow, bookID, err)
	}

	s.logger.Info("Book borrowed", "book_id", bookID.String(), "user_id", userID.String(), "due_date", dueDate)
	s.metrics.InventoryOperation(OperationBorrow, metrics.OutcomeSuccess)
	return record, nil
}

// Return closes the open borrow of bookID by userID and puts the copy back
func (s *Service) Return(ctx context.Context, bookID, userID uuid.UUID) error {
	if err := requireCaller(userID); err != nil {
		return s.reject(OperationReturn, err)
	}
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		record, err := s.records.WithTx(tx).DeleteBorrow(ctx, userID, bookID)
		if err != nil {
			return err
		}
		_, err = s.books.WithTx(tx).IncrementStock(ctx, bookID, record.Format, 1)
		return err
	})
	if err != nil {
		if errors.Is(err, book.ErrBorrowNotFound{}) {
			return s.reject(OperationReturn, shared.NewError(shared.KindNotFound, "", err, "no open borrow of book %s", bookID))
		}
		return s.fail(OperationReturn, bookID, err)
	}

	s.logger.Info("Book returned", "book_id", bookID.String(), "user_id", userID.String())
	s.metrics.InventoryOperation(OperationReturn, metrics.OutcomeSuccess)
	return nil
}

// Buy sells quantity copies in format at the catalog price. The wallet
// balance is not touched; gateway-paid purchases go through settlement.
func (s *Service) Buy(ctx context.Context, bookID, userID uuid.UUID, format string, quantity int) (*book.PurchaseRecord, error) {
	if err := requireCaller(userID); err != nil {
		return nil, s.reject(OperationBuy, err)
	}
	f, err := book.ParseFormat(format)
	if err != nil {
		return nil, s.reject(OperationBuy, shared.NewError(shared.KindInvalidInput, "", err, "format must be physical, ebook or audiobook"))
	}
	if quantity <= 0 || quantity > book.MaxQuantity {
		return nil, s.reject(OperationBuy, shared.NewError(shared.KindInvalidInput, "", book.ErrInvalidQuantity, "%s", book.ErrInvalidQuantity.Error()))
	}

	b, err := s.loadBook(ctx, bookID)
	if err != nil {
		return nil, s.reject(OperationBuy, err)
	}
	stock, ok := b.FormatStock(f)
	if !ok {
		return nil, s.reject(OperationBuy, shared.NewError(shared.KindUnavailable, "", nil, "book %s is not available as %s", bookID, f))
	}

	record, err := book.NewPurchaseRecord(userID, bookID, f, quantity, b.Price, "")
	if err != nil {
		return nil, s.reject(OperationBuy, shared.NewError(shared.KindInvalidInput, "", err, "%s", err.Error()))
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		books := s.books.WithTx(tx)
		if err := s.records.WithTx(tx).CreatePurchase(ctx, record); err != nil {
			return err
		}
		if stock.Tracked() {
			if err := books.DecrementStock(ctx, bookID, f, quantity); err != nil {
				return err
			}
		}
		return books.AddSales(ctx, bookID, quantity)
	})
	if err != nil {
		if errors.Is(err, book.ErrInsufficientStock{}) {
			return nil, s.reject(OperationBuy, shared.NewError(shared.KindUnavailable, "", err, "not enough %s copies of book %s in stock", f, bookID))
		}
		return nil, s.fail(OperationBuy, bookID, err)
	}

	s.logger.Info("Book purchased",
		"book_id", bookID.String(),
		"user_id", userID.String(),
		"format", f,
		"quantity", quantity,
		"amount", record.Amount)
	s.metrics.InventoryOperation(OperationBuy, metrics.OutcomeSuccess)
	return record, nil
}

func requireCaller(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewError(shared.KindUnauthorized, "", nil, "authentication required")
	}
	return nil
}

func (s *Service) loadBook(ctx context.Context, bookID uuid.UUID) (*book.Book, error) {
	b, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, book.ErrBookNotFound{}) {
			return nil, shared.NewError(shared.KindNotFound, "", err, "book %s not found", bookID)
		}
		s.logger.Error("Failed to load book", "book_id", bookID.String(), "error", err)
		return nil, shared.NewError(shared.KindInternal, "", err, "failed to load book")
	}
	return b, nil
}

func (s *Service) reject(operation string, err error) error {
	outcome := metrics.OutcomeRejected
	switch shared.KindOf(err) {
	case shared.KindUnavailable:
		outcome = metrics.OutcomeUnavailable
	case shared.KindInternal:
		outcome = metrics.OutcomeError
	}
	s.logger.Info("Inventory operation rejected", "operation", operation, "reason", shared.MessageOf(err))
	s.metrics.InventoryOperation(operation, outcome)
	return err
}

func (s *Service) fail(operation string, bookID uuid.UUID, err error) error {
	s.logger.Error("Inventory operation failed", "operation", operation, "book_id", bookID.String(), "error", err)
	s.metrics.InventoryOperation(operation, metrics.OutcomeError)
	return shared.NewError(shared.KindInternal, "", err, "%s failed", operation)
}
