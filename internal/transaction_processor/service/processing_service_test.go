package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
)

func TestProcessingService_ProcessSettlement(t *testing.T) {
	ctx := context.Background()
	settled := &payment.Transaction{Reference: "ref-1", Status: shared.TransactionStatusSuccess}

	t.Run("webhook job verifies and settles", func(t *testing.T) {
		settler := new(MockSettler)
		svc := NewProcessingService(settler, newTestLogger())
		settler.On("VerifyAndSettle", ctx, "ref-1", "corr-1").Return(settled, nil).Once()

		err := svc.ProcessSettlement(ctx, &shared.SettlementJob{
			Reference:     "ref-1",
			Source:        shared.SettlementSourceWebhook,
			CorrelationID: "corr-1",
		})

		assert.NoError(t, err)
		settler.AssertExpectations(t)
		settler.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sweep job reconciles", func(t *testing.T) {
		settler := new(MockSettler)
		svc := NewProcessingService(settler, newTestLogger())
		settler.On("Reconcile", ctx, "ref-1", "").Return(settled, nil).Once()

		err := svc.ProcessSettlement(ctx, &shared.SettlementJob{Reference: "ref-1", Source: shared.SettlementSourceSweep})

		assert.NoError(t, err)
		settler.AssertExpectations(t)
	})

	pendingKinds := []shared.ErrorKind{
		shared.KindNotFound,
		shared.KindVerificationFailed,
		shared.KindGatewayError,
		shared.KindEffectApplicationFailed,
	}
	for _, kind := range pendingKinds {
		t.Run("acknowledges "+string(kind), func(t *testing.T) {
			settler := new(MockSettler)
			svc := NewProcessingService(settler, newTestLogger())
			settler.On("VerifyAndSettle", ctx, "ref-2", "").
				Return(nil, shared.NewError(kind, "ref-2", nil, "not settled")).Once()

			err := svc.ProcessSettlement(ctx, &shared.SettlementJob{Reference: "ref-2", Source: shared.SettlementSourceWebhook})
			assert.NoError(t, err)
		})
	}

	t.Run("internal error is returned", func(t *testing.T) {
		settler := new(MockSettler)
		svc := NewProcessingService(settler, newTestLogger())
		cause := errors.New("connection reset")
		settler.On("VerifyAndSettle", ctx, "ref-3", "").
			Return(nil, shared.NewError(shared.KindInternal, "ref-3", cause, "failed to load transaction")).Once()

		err := svc.ProcessSettlement(ctx, &shared.SettlementJob{Reference: "ref-3", Source: shared.SettlementSourceWebhook})

		assert.ErrorIs(t, err, cause)
		assert.ErrorContains(t, err, "settling ref-3 failed")
	})
}
