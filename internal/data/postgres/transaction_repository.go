package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/platform/persistence"
)

const transactionColumns = `id, reference, user_id, amount, currency, type, status, recipient, recipient_route,
		book_id, format, quantity, failure_reason, gateway_status, balance_after, last_checked_at, created_at, updated_at`

// TransactionRepository implements payment.Repository for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *TransactionRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts a pending transaction. The UNIQUE constraint on reference
// rejects reuse in any status.
func (r *TransactionRepository) Create(ctx context.Context, txn *payment.Transaction) error {
	query := `
		INSERT INTO payment_transactions (id, reference, user_id, amount, currency, type, status,
			recipient, recipient_route, book_id, format, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.Reference,
		txn.UserID,
		txn.Amount,
		txn.Currency,
		txn.Type,
		txn.Status,
		txn.Recipient,
		txn.RecipientRoute,
		txn.BookID,
		txn.Format,
		txn.Quantity,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return payment.ErrDuplicateReference{Reference: txn.Reference}
		}
		r.logger.Error("Failed to create transaction", "reference", txn.Reference, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByReference retrieves a transaction by its reference
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*payment.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE reference = $1`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrTransactionNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get transaction", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// LockForUpdate reads the transaction under a row lock so that concurrent
// settlements of the same reference queue behind each other
func (r *TransactionRepository) LockForUpdate(ctx context.Context, reference string) (*payment.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE reference = $1 FOR UPDATE`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrTransactionNotFound{Reference: reference}
		}
		r.logger.Error("Failed to lock transaction", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to lock transaction: %w", err)
	}

	return txn, nil
}

// Transition moves a pending transaction to a final status. The status
// predicate makes this the single linearization point per reference.
func (r *TransactionRepository) Transition(ctx context.Context, reference string, to shared.TransactionStatus, outcome payment.Outcome) (bool, error) {
	if !to.IsFinal() {
		return false, fmt.Errorf("invalid transition target: %s", to)
	}

	query := `
		UPDATE payment_transactions
		SET status = $2, failure_reason = $3, gateway_status = COALESCE(NULLIF($4, ''), gateway_status),
			balance_after = $5, updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'
	`

	result, err := r.querier.Exec(ctx, query, reference, to, outcome.FailureReason, outcome.GatewayStatus, outcome.BalanceAfter)
	if err != nil {
		r.logger.Error("Failed to transition transaction",
			"reference", reference,
			"status", string(to),
			"error", err)
		return false, fmt.Errorf("failed to transition transaction: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// RecordGatewayStatus stores the last status the gateway reported while the transaction is pending
func (r *TransactionRepository) RecordGatewayStatus(ctx context.Context, reference, gatewayStatus string) error {
	query := `
		UPDATE payment_transactions SET gateway_status = $2, updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'
	`

	if _, err := r.querier.Exec(ctx, query, reference, gatewayStatus); err != nil {
		r.logger.Error("Failed to record gateway status", "reference", reference, "error", err)
		return fmt.Errorf("failed to record gateway status: %w", err)
	}
	return nil
}

// ClaimStale stamps and returns the least recently checked stale pending
// transactions. Rows locked by a concurrent claim are skipped.
func (r *TransactionRepository) ClaimStale(ctx context.Context, cutoff, checkedAt time.Time, limit int) ([]*payment.Transaction, error) {
	query := `
		UPDATE payment_transactions SET last_checked_at = $3
		WHERE reference IN (
			SELECT reference FROM payment_transactions
			WHERE status = 'pending' AND created_at < $1
			ORDER BY last_checked_at ASC NULLS FIRST, created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + transactionColumns

	rows, err := r.querier.Query(ctx, query, cutoff, limit, checkedAt)
	if err != nil {
		r.logger.Error("Failed to claim stale transactions", "error", err)
		return nil, fmt.Errorf("failed to claim stale transactions: %w", err)
	}
	defer rows.Close()

	var txns []*payment.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over stale transactions: %w", err)
	}

	return txns, nil
}

func scanTransaction(row pgx.Row) (*payment.Transaction, error) {
	var txn payment.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.Reference,
		&txn.UserID,
		&txn.Amount,
		&txn.Currency,
		&txn.Type,
		&txn.Status,
		&txn.Recipient,
		&txn.RecipientRoute,
		&txn.BookID,
		&txn.Format,
		&txn.Quantity,
		&txn.FailureReason,
		&txn.GatewayStatus,
		&txn.BalanceAfter,
		&txn.LastCheckedAt,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
