// Package reconciler periodically re-verifies transactions that have been
// pending for too long, so a lost gateway notification never strands one.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/bookstore-ledger/internal/config"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/transaction_processor/service"
)

// Sweeper feeds stale pending transactions to the settlement worker pool
type Sweeper struct {
	txnRepo   payment.Repository
	processor service.ProcessingService
	logger    *slog.Logger
	schedule  string
	batchSize int
	minAge    time.Duration
	now       func() time.Time
	cron      *cron.Cron
}

func NewSweeper(
	cfg *config.ReconcileConfig,
	txnRepo payment.Repository,
	processor service.ProcessingService,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		txnRepo:   txnRepo,
		processor: processor,
		logger:    logger,
		schedule:  cfg.Schedule,
		batchSize: cfg.BatchSize,
		minAge:    cfg.MinAge,
		now:       time.Now,
	}
}

// Start schedules the sweep and stops the scheduler when ctx is canceled.
// A run that overlaps the previous one is skipped.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("Reconciliation sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", s.schedule, err)
	}

	s.logger.Info("Starting reconciliation sweeper",
		"schedule", s.schedule,
		"batch_size", s.batchSize,
		"min_age", s.minAge.String(),
	)
	s.cron.Start()

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.logger.Info("Reconciliation sweeper stopped")
	}()
	return nil
}

// Sweep claims one batch of stale pending transactions, submits them and
// waits for them. Each claim moves a transaction behind the others, so a
// backlog larger than the batch is worked through across runs.
// It returns how many were submitted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	pending, err := s.txnRepo.ClaimStale(ctx, now.Add(-s.minAge), now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim stale pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	runID := uuid.NewString()
	logger := s.logger.With("correlation_id", runID)
	logger.Info("Reconciling stale pending transactions", "count", len(pending))

	var wg sync.WaitGroup
	for _, txn := range pending {
		wg.Add(1)
		go func(reference string) {
			defer wg.Done()
			job := &shared.SettlementJob{
				Reference:     reference,
				Source:        shared.SettlementSourceSweep,
				CorrelationID: runID,
			}
			if err := s.processor.ProcessSettlement(ctx, job); err != nil {
				logger.Error("Reconciliation of pending transaction failed", "reference", reference, "error", err)
			}
		}(txn.Reference)
	}
	wg.Wait()

	return len(pending), nil
}
