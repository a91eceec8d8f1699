package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookstore-ledger/internal/domain/outbox"
	"github.com/bookstore-ledger/internal/domain/shared"
)

func TestOutboxRepository_WithTx(t *testing.T) {
	repo := &OutboxRepository{logger: newTestLogger()}

	txRepo := repo.WithTx(pgx.Tx(nil))

	outboxRepo, ok := txRepo.(*OutboxRepository)
	require.True(t, ok)
	assert.Equal(t, repo.logger, outboxRepo.logger)
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	msg := &outbox.Message{
		TransactionID: uuid.New(),
		Reference:     "ref-1",
		UserID:        uuid.New(),
		Payload:       json.RawMessage(`{"reference":"ref-1"}`),
		Status:        shared.OutboxStatusPending,
		CreatedAt:     time.Now(),
	}
	query := regexp.QuoteMeta("INSERT INTO transaction_outbox")

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(msg.TransactionID, msg.Reference, msg.UserID, msg.Payload, msg.Status, 0, msg.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		require.NoError(t, repo.Create(ctx, msg))
		assert.Equal(t, int64(42), msg.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		mock.ExpectQuery(query).WillReturnError(errors.New("db error"))

		err := repo.Create(ctx, msg)
		assert.Contains(t, err.Error(), "failed to create outbox message")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	txID, userID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM transaction_outbox WHERE status = $1")).
		WithArgs(shared.OutboxStatusPending, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "transaction_id", "reference", "user_id", "payload", "status", "attempts", "created_at", "last_attempt_at"}).
			AddRow(int64(1), txID, "ref-1", userID, json.RawMessage(`{}`), shared.OutboxStatusPending, 0, now, (*time.Time)(nil)))

	messages, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "ref-1", messages[0].Reference)
	assert.Equal(t, userID, messages[0].UserID)
	assert.Nil(t, messages[0].LastAttemptAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("UPDATE transaction_outbox SET status = $1")

	mock.ExpectExec(query).WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.UpdateStatus(ctx, 1, shared.OutboxStatusProcessed))

	mock.ExpectExec(query).WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err = repo.UpdateStatus(ctx, 2, shared.OutboxStatusProcessed)
	var notFound outbox.ErrMessageNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(2), notFound.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_IncrementAttempts(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	mock.ExpectExec(regexp.QuoteMeta("SET attempts = attempts + 1")).WithArgs(pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.IncrementAttempts(ctx, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}
