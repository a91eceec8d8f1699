package reconciler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookstore-ledger/internal/config"
	"github.com/bookstore-ledger/internal/data/memory"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
)

type recordingProcessor struct {
	mu   sync.Mutex
	jobs []shared.SettlementJob
}

func (p *recordingProcessor) ProcessSettlement(_ context.Context, job *shared.SettlementJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, *job)
	return nil
}

func (p *recordingProcessor) references() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	refs := make([]string, 0, len(p.jobs))
	for _, j := range p.jobs {
		refs = append(refs, j.Reference)
	}
	return refs
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedPending(t *testing.T, store *memory.Store, reference string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, store.Transactions().Create(context.Background(), &payment.Transaction{
		ID:        uuid.New(),
		Reference: reference,
		UserID:    uuid.New(),
		Type:      shared.TransactionTypeDeposit,
		Amount:    5000,
		Currency:  "NGN",
		Status:    shared.TransactionStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}))
}

func TestSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	store := memory.NewStore()
	seedPending(t, store, "old-1", now.Add(-time.Hour))
	seedPending(t, store, "old-2", now.Add(-30*time.Minute))
	seedPending(t, store, "old-3", now.Add(-20*time.Minute))
	seedPending(t, store, "fresh", now.Add(-time.Minute))

	processor := &recordingProcessor{}
	sweeper := NewSweeper(&config.ReconcileConfig{
		Schedule:  "@every 1m",
		BatchSize: 2,
		MinAge:    5 * time.Minute,
	}, store.Transactions(), processor, newTestLogger())
	sweeper.now = func() time.Time { return now }

	n, err := sweeper.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"old-1", "old-2"}, processor.references())
	for _, job := range processor.jobs {
		assert.Equal(t, shared.SettlementSourceSweep, job.Source)
		assert.NotEmpty(t, job.CorrelationID)
	}
}

func TestSweeper_SweepRotatesThroughBacklog(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	store := memory.NewStore()
	seedPending(t, store, "abandoned-1", now.Add(-20*time.Hour))
	seedPending(t, store, "abandoned-2", now.Add(-19*time.Hour))
	seedPending(t, store, "webhook-lost", now.Add(-10*time.Minute))

	processor := &recordingProcessor{}
	sweeper := NewSweeper(&config.ReconcileConfig{
		Schedule:  "@every 1m",
		BatchSize: 2,
		MinAge:    5 * time.Minute,
	}, store.Transactions(), processor, newTestLogger())

	clock := now
	sweeper.now = func() time.Time { return clock }

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"abandoned-1", "abandoned-2"}, processor.references())

	clock = clock.Add(time.Minute)
	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, processor.references()[2:], "webhook-lost")

	stored, ok := store.Transaction("webhook-lost")
	require.True(t, ok)
	require.NotNil(t, stored.LastCheckedAt)
	assert.Equal(t, clock, *stored.LastCheckedAt)

	clock = clock.Add(time.Minute)
	_, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Contains(t, processor.references()[4:], "abandoned-2")
}

func TestSweeper_SweepNothingPending(t *testing.T) {
	processor := &recordingProcessor{}
	sweeper := NewSweeper(&config.ReconcileConfig{Schedule: "@every 1m", BatchSize: 10, MinAge: time.Minute},
		memory.NewStore().Transactions(), processor, newTestLogger())

	n, err := sweeper.Sweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, processor.references())
}

func TestSweeper_Start(t *testing.T) {
	t.Run("invalid schedule", func(t *testing.T) {
		sweeper := NewSweeper(&config.ReconcileConfig{Schedule: "every so often", BatchSize: 1, MinAge: time.Minute},
			memory.NewStore().Transactions(), &recordingProcessor{}, newTestLogger())

		err := sweeper.Start(context.Background())
		assert.ErrorContains(t, err, "invalid reconcile schedule")
	})

	t.Run("runs on schedule", func(t *testing.T) {
		store := memory.NewStore()
		seedPending(t, store, "stuck", time.Now().UTC().Add(-time.Hour))
		processor := &recordingProcessor{}
		sweeper := NewSweeper(&config.ReconcileConfig{Schedule: "@every 1s", BatchSize: 10, MinAge: time.Minute},
			store.Transactions(), processor, newTestLogger())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, sweeper.Start(ctx))

		assert.Eventually(t, func() bool {
			return len(processor.references()) > 0
		}, 3*time.Second, 20*time.Millisecond)
		assert.Equal(t, "stuck", processor.references()[0])
	})
}
