package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/platform/persistence"
	"github.com/bookstore-ledger/internal/settlement"
)

type FailureRecorderImpl struct {
	db       persistence.TxRunner
	txnRepo  payment.Repository
	accounts settlement.AccountManager
	outbox   settlement.OutboxManager
	logger   *slog.Logger
}

func NewFailureRecorder(
	db persistence.TxRunner,
	txnRepo payment.Repository,
	accounts settlement.AccountManager,
	outbox settlement.OutboxManager,
	logger *slog.Logger,
) settlement.FailureRecorder {
	return &FailureRecorderImpl{
		db:       db,
		txnRepo:  txnRepo,
		accounts: accounts,
		outbox:   outbox,
		logger:   logger,
	}
}

// RecordFailure fails a pending transaction and queues its history snapshot.
// A failed withdrawal gives its held funds back in the same transaction.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, reference string, reason shared.FailureReason, gatewayStatus, correlationID string) (bool, error) {
	logger := r.logger
	if correlationID != "" {
		logger = r.logger.With("correlation_id", correlationID)
	}

	applied := false
	err := r.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := r.txnRepo.WithTx(tx)

		ok, err := repo.Transition(ctx, reference, shared.TransactionStatusFailed, payment.Outcome{
			FailureReason: string(reason),
			GatewayStatus: gatewayStatus,
		})
		if err != nil || !ok {
			return err
		}

		failed, err := repo.GetByReference(ctx, reference)
		if err != nil {
			return err
		}
		if failed.Type == shared.TransactionTypeTransfer {
			err := r.accounts.ReleaseFunds(ctx, tx, failed.UserID, failed.Amount)
			if err != nil && !errors.Is(err, account.ErrNoHold) {
				return err
			}
			if err != nil {
				logger.Error("Failed withdrawal had no hold to release", "reference", reference, "amount", failed.Amount)
			}
		}
		if err := r.outbox.CreateOutboxEntry(ctx, tx, failed, correlationID); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		logger.Error("Failed to record transaction failure", "reference", reference, "reason", reason, "error", err)
		return false, fmt.Errorf("failed to record failure for %s: %w", reference, err)
	}

	if applied {
		logger.Info("Transaction failed", "reference", reference, "reason", reason)
	} else {
		logger.Info("Transaction already final, failure not recorded", "reference", reference, "reason", reason)
	}
	return applied, nil
}
