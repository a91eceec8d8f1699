// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every balance and stock mutation is a single conditional statement so that
// concurrent requests never lose an update.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/platform/persistence"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, email, name, role, balance, reserved, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.Email,
		&acc.Name,
		&acc.Role,
		&acc.Balance,
		&acc.Reserved,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// Credit adds amount to the balance in one statement and returns the new balance
func (r *AccountRepository) Credit(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, account.ErrInvalidAmount
	}

	query := `
		UPDATE accounts SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance
	`

	var balance int64
	err := r.querier.QueryRow(ctx, query, amount, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to credit account", "id", id.String(), "amount", amount, "error", err)
		return 0, fmt.Errorf("failed to credit account: %w", err)
	}

	return balance, nil
}

// Reserve holds amount only if the live balance minus existing holds covers it
func (r *AccountRepository) Reserve(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, account.ErrInvalidAmount
	}

	query := `
		UPDATE accounts SET reserved = reserved + $1, updated_at = NOW()
		WHERE id = $2 AND balance - reserved >= $1
		RETURNING balance - reserved
	`

	var available int64
	err := r.querier.QueryRow(ctx, query, amount, id).Scan(&available)
	if err == nil {
		return available, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to reserve funds", "id", id.String(), "amount", amount, "error", err)
		return 0, fmt.Errorf("failed to reserve funds: %w", err)
	}
	return 0, r.noMatch(ctx, id, account.ErrInsufficientFunds)
}

// Release drops a hold of amount
func (r *AccountRepository) Release(ctx context.Context, id uuid.UUID, amount int64) error {
	if amount <= 0 {
		return account.ErrInvalidAmount
	}

	query := `
		UPDATE accounts SET reserved = reserved - $1, updated_at = NOW()
		WHERE id = $2 AND reserved >= $1
	`

	tag, err := r.querier.Exec(ctx, query, amount, id)
	if err != nil {
		r.logger.Error("Failed to release funds", "id", id.String(), "amount", amount, "error", err)
		return fmt.Errorf("failed to release funds: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.noMatch(ctx, id, account.ErrNoHold)
	}
	return nil
}

// Capture debits a held amount, removing the hold in the same statement
func (r *AccountRepository) Capture(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, account.ErrInvalidAmount
	}

	query := `
		UPDATE accounts SET balance = balance - $1, reserved = reserved - $1, updated_at = NOW()
		WHERE id = $2 AND reserved >= $1 AND balance >= $1
		RETURNING balance
	`

	var balance int64
	err := r.querier.QueryRow(ctx, query, amount, id).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to capture funds", "id", id.String(), "amount", amount, "error", err)
		return 0, fmt.Errorf("failed to capture funds: %w", err)
	}
	return 0, r.noMatch(ctx, id, account.ErrNoHold)
}

// noMatch tells a missing account apart from a failed condition
func (r *AccountRepository) noMatch(ctx context.Context, id uuid.UUID, conditionErr error) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return conditionErr
}
