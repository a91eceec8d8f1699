package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
)

// MockProcessingService mocks the ProcessingService interface
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessSettlement(ctx context.Context, job *shared.SettlementJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockSettler mocks the Settler interface
type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) VerifyAndSettle(ctx context.Context, reference, correlationID string) (*payment.Transaction, error) {
	args := m.Called(ctx, reference, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockSettler) Reconcile(ctx context.Context, reference, correlationID string) (*payment.Transaction, error) {
	args := m.Called(ctx, reference, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func jobFor(reference string) any {
	return mock.MatchedBy(func(job *shared.SettlementJob) bool {
		return job.Reference == reference
	})
}
