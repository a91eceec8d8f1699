package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/bookstore-ledger/internal/domain/shared"
)

// WorkerPoolProcessingService runs settlement jobs on a bounded ants pool.
// A job for a reference that is already being settled is skipped.
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		inFlight:    make(map[string]struct{}),
	}, nil
}

// ProcessSettlement submits job to the pool and waits for its result
func (s *WorkerPoolProcessingService) ProcessSettlement(ctx context.Context, job *shared.SettlementJob) error {
	if !s.claim(job.Reference) {
		s.logger.Debug("Settlement already in flight, skipping job",
			"reference", job.Reference,
			"source", string(job.Source),
		)
		return nil
	}

	resultChan := make(chan error, 1)
	jobCopy := *job

	err := s.pool.Submit(func() {
		defer s.release(jobCopy.Reference)
		resultChan <- s.baseService.ProcessSettlement(ctx, &jobCopy)
	})
	if err != nil {
		s.release(job.Reference)
		s.logger.Error("Failed to submit settlement to worker pool",
			"reference", job.Reference,
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *WorkerPoolProcessingService) claim(reference string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[reference]; busy {
		return false
	}
	s.inFlight[reference] = struct{}{}
	return true
}

func (s *WorkerPoolProcessingService) release(reference string) {
	s.mu.Lock()
	delete(s.inFlight, reference)
	s.mu.Unlock()
}

// Shutdown releases the pool
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
