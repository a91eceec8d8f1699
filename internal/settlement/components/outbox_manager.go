package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/ledger"
	"github.com/bookstore-ledger/internal/domain/outbox"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/settlement"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) settlement.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry queues the current snapshot of txn for the history store
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, txn *payment.Transaction, correlationID string) error {
	logger := m.logger
	if correlationID != "" {
		logger = m.logger.With("correlation_id", correlationID)
	}

	message, err := outbox.NewMessage(ledger.NewEntry(txn, correlationID))
	if err != nil {
		logger.Error("Failed to build outbox message", "reference", txn.Reference, "error", err)
		return fmt.Errorf("failed to create outbox message payload for %s: %w", txn.Reference, err)
	}

	if err := m.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message", "reference", txn.Reference, "error", err)
		return fmt.Errorf("failed to create outbox message for %s: %w", txn.Reference, err)
	}

	logger.Debug("Outbox message created", "reference", txn.Reference, "status", txn.Status, "outbox_id", message.ID)
	return nil
}
