package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
)

type ProcessingServiceImpl struct {
	settler Settler
	logger  *slog.Logger
}

func NewProcessingService(settler Settler, logger *slog.Logger) ProcessingService {
	return &ProcessingServiceImpl{
		settler: settler,
		logger:  logger,
	}
}

// ProcessSettlement verifies and settles the job's reference. Notifications go
// straight to VerifyAndSettle; sweep jobs may also expire an abandoned payment.
// Outcomes that leave the transaction pending are not errors here: the sweep
// picks the reference up again on its next run.
func (s *ProcessingServiceImpl) ProcessSettlement(ctx context.Context, job *shared.SettlementJob) error {
	logger := s.logger.With("reference", job.Reference, "source", string(job.Source))
	if job.CorrelationID != "" {
		logger = logger.With("correlation_id", job.CorrelationID)
	}

	var (
		txn *payment.Transaction
		err error
	)
	switch job.Source {
	case shared.SettlementSourceSweep:
		txn, err = s.settler.Reconcile(ctx, job.Reference, job.CorrelationID)
	default:
		txn, err = s.settler.VerifyAndSettle(ctx, job.Reference, job.CorrelationID)
	}

	if err == nil {
		logger.Info("Settlement processed", "status", string(txn.Status))
		return nil
	}

	switch shared.KindOf(err) {
	case shared.KindNotFound:
		logger.Warn("Ignoring notification for unknown reference")
		return nil
	case shared.KindVerificationFailed, shared.KindGatewayError:
		logger.Info("Transaction left pending", "reason", shared.MessageOf(err))
		return nil
	case shared.KindEffectApplicationFailed:
		logger.Error("Settlement effect could not be applied, will retry", "error", err)
		return nil
	default:
		logger.Error("Settlement failed", "error", err)
		return fmt.Errorf("settling %s failed: %w", job.Reference, err)
	}
}
