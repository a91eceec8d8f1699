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

// BookRepository implements book.Repository for PostgreSQL
type BookRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBookRepository creates a new PostgreSQL book repository
func NewBookRepository(logger *slog.Logger, db *persistence.PostgresDB) book.Repository {
	return &BookRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *BookRepository) WithTx(tx pgx.Tx) book.Repository {
	return &BookRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByID retrieves a book together with its formats
func (r *BookRepository) GetByID(ctx context.Context, id uuid.UUID) (*book.Book, error) {
	query := `
		SELECT id, title, author, price, sales, created_at, updated_at
		FROM books
		WHERE id = $1
	`

	var b book.Book
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&b.Price,
		&b.Sales,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, book.ErrBookNotFound{BookID: id}
		}
		r.logger.Error("Failed to get book", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	rows, err := r.querier.Query(ctx, `SELECT format, stock FROM book_formats WHERE book_id = $1 ORDER BY format`, id)
	if err != nil {
		r.logger.Error("Failed to get book formats", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get book formats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f book.FormatStock
		if err := rows.Scan(&f.Format, &f.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan book format: %w", err)
		}
		b.Formats = append(b.Formats, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over book formats: %w", err)
	}

	return &b, nil
}

// DecrementStock subtracts quantity only where tracked stock covers it
func (r *BookRepository) DecrementStock(ctx context.Context, bookID uuid.UUID, format book.Format, quantity int) error {
	if quantity <= 0 {
		return book.ErrInvalidQuantity
	}

	query := `
		UPDATE book_formats SET stock = stock - $3
		WHERE book_id = $1 AND format = $2 AND stock IS NOT NULL AND stock >= $3
	`

	result, err := r.querier.Exec(ctx, query, bookID, format, quantity)
	if err != nil {
		r.logger.Error("Failed to decrement stock",
			"book_id", bookID.String(),
			"format", string(format),
			"error", err)
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if result.RowsAffected() == 0 {
		return book.ErrInsufficientStock{BookID: bookID, Format: format}
	}
	return nil
}

// IncrementStock adds quantity to a tracked format
func (r *BookRepository) IncrementStock(ctx context.Context, bookID uuid.UUID, format book.Format, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, book.ErrInvalidQuantity
	}

	query := `
		UPDATE book_formats SET stock = stock + $3
		WHERE book_id = $1 AND format = $2 AND stock IS NOT NULL
	`

	result, err := r.querier.Exec(ctx, query, bookID, format, quantity)
	if err != nil {
		r.logger.Error("Failed to increment stock",
			"book_id", bookID.String(),
			"format", string(format),
			"error", err)
		return false, fmt.Errorf("failed to increment stock: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// AddSales increases the sales counter
func (r *BookRepository) AddSales(ctx context.Context, bookID uuid.UUID, quantity int) error {
	query := `UPDATE books SET sales = sales + $2, updated_at = NOW() WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, bookID, quantity)
	if err != nil {
		r.logger.Error("Failed to add sales", "book_id", bookID.String(), "error", err)
		return fmt.Errorf("failed to add sales: %w", err)
	}
	if result.RowsAffected() == 0 {
		return book.ErrBookNotFound{BookID: bookID}
	}
	return nil
}
