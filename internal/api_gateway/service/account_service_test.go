package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookstore-ledger/internal/data/memory"
	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/domain/shared"
)

func TestAccountService_GetAccount(t *testing.T) {
	store := memory.NewStore()
	id := uuid.New()
	store.PutAccount(account.Account{ID: id, Email: "reader@example.com", Role: account.RoleUser, Balance: 250000})
	svc := NewAccountService(newTestLogger(), store.Accounts())

	t.Run("found", func(t *testing.T) {
		acc, err := svc.GetAccount(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(250000), acc.Balance)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.GetAccount(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{})
	})
}
