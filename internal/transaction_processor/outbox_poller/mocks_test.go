package outbox_poller

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookstore-ledger/internal/data/memory"
	"github.com/bookstore-ledger/internal/domain/ledger"
	"github.com/bookstore-ledger/internal/domain/outbox"
	"github.com/bookstore-ledger/internal/domain/shared"
)

// MockLedgerRepo mocks ledger.Repository
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Upsert(ctx context.Context, entry *ledger.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLedgerRepo) GetByReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockLedgerPublisher mocks LedgerPublisher
type MockLedgerPublisher struct {
	mock.Mock
}

func (m *MockLedgerPublisher) PublishToLedger(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedOutbox stores one pending message per reference
func seedOutbox(t *testing.T, store *memory.Store, references ...string) {
	t.Helper()
	for _, ref := range references {
		msg, err := outbox.NewMessage(&ledger.Entry{
			Reference:     ref,
			TransactionID: uuid.New(),
			UserID:        uuid.New(),
			Type:          shared.TransactionTypeDeposit,
			Amount:        150000,
			Currency:      "NGN",
			Status:        shared.TransactionStatusSuccess,
			UpdatedAt:     time.Now().UTC(),
		})
		require.NoError(t, err)
		require.NoError(t, store.Outbox().Create(context.Background(), msg))
	}
}
