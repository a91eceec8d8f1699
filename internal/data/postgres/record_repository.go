package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/platform/persistence"
)

// RecordRepository implements book.RecordRepository for PostgreSQL
type RecordRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRecordRepository creates a new PostgreSQL borrow/purchase record repository
func NewRecordRepository(logger *slog.Logger, db *persistence.PostgresDB) book.RecordRepository {
	return &RecordRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *RecordRepository) WithTx(tx pgx.Tx) book.RecordRepository {
	return &RecordRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateBorrow inserts an open borrow record. UNIQUE(user_id, book_id) rejects a second open loan.
func (r *RecordRepository) CreateBorrow(ctx context.Context, record *book.BorrowRecord) error {
	query := `
		INSERT INTO borrow_records (id, user_id, book_id, format, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.BookID,
		record.Format,
		record.DueDate,
		record.CreatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return book.ErrDuplicateBorrow{UserID: record.UserID, BookID: record.BookID}
		}
		r.logger.Error("Failed to create borrow record",
			"book_id", record.BookID.String(),
			"user_id", record.UserID.String(),
			"error", err)
		return fmt.Errorf("failed to create borrow record: %w", err)
	}

	return nil
}

// DeleteBorrow removes the open borrow record and returns it
func (r *RecordRepository) DeleteBorrow(ctx context.Context, userID, bookID uuid.UUID) (*book.BorrowRecord, error) {
	query := `
		DELETE FROM borrow_records WHERE user_id = $1 AND book_id = $2
		RETURNING id, user_id, book_id, format, due_date, created_at
	`

	var rec book.BorrowRecord
	err := r.querier.QueryRow(ctx, query, userID, bookID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.BookID,
		&rec.Format,
		&rec.DueDate,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, book.ErrBorrowNotFound{UserID: userID, BookID: bookID}
		}
		r.logger.Error("Failed to delete borrow record",
			"book_id", bookID.String(),
			"user_id", userID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to delete borrow record: %w", err)
	}

	return &rec, nil
}

// CreatePurchase inserts a purchase record
func (r *RecordRepository) CreatePurchase(ctx context.Context, record *book.PurchaseRecord) error {
	query := `
		INSERT INTO purchase_records (id, user_id, book_id, format, quantity, amount, reference, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`

	_, err := r.querier.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.BookID,
		record.Format,
		record.Quantity,
		record.Amount,
		record.Reference,
		record.PurchasedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create purchase record",
			"book_id", record.BookID.String(),
			"user_id", record.UserID.String(),
			"error", err)
		return fmt.Errorf("failed to create purchase record: %w", err)
	}

	return nil
}
