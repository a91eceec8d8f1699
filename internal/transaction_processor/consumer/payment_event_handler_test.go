package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookstore-ledger/internal/domain/shared"
)

type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessSettlement(ctx context.Context, job *shared.SettlementJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type MockDLQProducer struct {
	mock.Mock
}

func (m *MockDLQProducer) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDLQProducer) Close() error {
	return m.Called().Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPaymentEventHandler_HandleMessage(t *testing.T) {
	ctx := context.Background()
	valid, err := json.Marshal(shared.PaymentEvent{Event: "charge.success", Reference: "ref-1", CorrelationID: "corr-1"})
	require.NoError(t, err)

	t.Run("submits webhook settlement job", func(t *testing.T) {
		processor := new(MockProcessingService)
		dlq := new(MockDLQProducer)
		handler := NewPaymentEventHandler(newTestLogger(), processor, dlq)

		processor.On("ProcessSettlement", ctx, &shared.SettlementJob{
			Reference:     "ref-1",
			Source:        shared.SettlementSourceWebhook,
			CorrelationID: "corr-1",
		}).Return(nil).Once()

		require.NoError(t, handler.HandleMessage(ctx, []byte("ref-1"), valid))
		processor.AssertExpectations(t)
		dlq.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("processing error is returned", func(t *testing.T) {
		processor := new(MockProcessingService)
		handler := NewPaymentEventHandler(newTestLogger(), processor, new(MockDLQProducer))
		processErr := errors.New("db down")
		processor.On("ProcessSettlement", ctx, mock.Anything).Return(processErr).Once()

		err := handler.HandleMessage(ctx, []byte("ref-1"), valid)
		assert.ErrorIs(t, err, processErr)
	})

	t.Run("malformed json goes to DLQ", func(t *testing.T) {
		processor := new(MockProcessingService)
		dlq := new(MockDLQProducer)
		handler := NewPaymentEventHandler(newTestLogger(), processor, dlq)
		body := []byte(`{"event":`)

		dlq.On("PublishToDLQ", ctx, "k", body, mock.AnythingOfType("string")).Return(nil).Once()

		require.NoError(t, handler.HandleMessage(ctx, []byte("k"), body))
		dlq.AssertExpectations(t)
		processor.AssertNotCalled(t, "ProcessSettlement", mock.Anything, mock.Anything)
	})

	t.Run("missing reference goes to DLQ", func(t *testing.T) {
		dlq := new(MockDLQProducer)
		handler := NewPaymentEventHandler(newTestLogger(), new(MockProcessingService), dlq)
		body := []byte(`{"event":"charge.success"}`)

		dlq.On("PublishToDLQ", ctx, "", body, errMissingReference.Error()).Return(nil).Once()

		require.NoError(t, handler.HandleMessage(ctx, nil, body))
		dlq.AssertExpectations(t)
	})

	t.Run("DLQ failure returns decode error", func(t *testing.T) {
		dlq := new(MockDLQProducer)
		handler := NewPaymentEventHandler(newTestLogger(), new(MockProcessingService), dlq)
		dlq.On("PublishToDLQ", ctx, "k", mock.Anything, mock.Anything).Return(errors.New("dlq down")).Once()

		err := handler.HandleMessage(ctx, []byte("k"), []byte(`{"event":"x"}`))
		assert.ErrorIs(t, err, errMissingReference)
	})

	t.Run("no DLQ configured", func(t *testing.T) {
		handler := NewPaymentEventHandler(newTestLogger(), new(MockProcessingService), nil)

		err := handler.HandleMessage(ctx, []byte("k"), []byte("not json"))
		assert.ErrorContains(t, err, "failed to unmarshal payment event")
	})
}
