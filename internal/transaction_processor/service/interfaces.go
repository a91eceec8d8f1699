package service

import (
	"context"

	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
)

// ProcessingService runs one settlement job to completion
type ProcessingService interface {
	ProcessSettlement(ctx context.Context, job *shared.SettlementJob) error
}

// Settler is the part of the transaction orchestrator the processor drives
type Settler interface {
	VerifyAndSettle(ctx context.Context, reference, correlationID string) (*payment.Transaction, error)
	Reconcile(ctx context.Context, reference, correlationID string) (*payment.Transaction, error)
}
