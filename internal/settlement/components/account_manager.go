package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/settlement"
)

// AccountManagerImpl implements the AccountManager interface
type AccountManagerImpl struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

// NewAccountManager creates a new AccountManagerImpl
func NewAccountManager(accountRepo account.Repository, logger *slog.Logger) settlement.AccountManager {
	return &AccountManagerImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// GetAccount loads the wallet of userID
func (m *AccountManagerImpl) GetAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	acc, err := m.accountRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			m.logger.Warn("Account not found", "user_id", userID.String())
			return nil, shared.NewError(shared.KindNotFound, "", err, "user %s not found", userID)
		}
		return nil, shared.NewError(shared.KindInternal, "", err, "failed to load account")
	}
	return acc, nil
}

// ApplyCredit adds amount to the wallet within tx and returns the new balance
func (m *AccountManagerImpl) ApplyCredit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (int64, error) {
	balance, err := m.accountRepo.WithTx(tx).Credit(ctx, userID, amount)
	if err != nil {
		m.logger.Error("Failed to credit account", "user_id", userID.String(), "amount", amount, "error", err)
		return 0, fmt.Errorf("failed to credit account %s: %w", userID, err)
	}
	m.logger.Info("Account credited", "user_id", userID.String(), "amount", amount, "balance", balance)
	return balance, nil
}

// ReserveFunds holds amount for a withdrawal within tx if the live available
// balance covers it
func (m *AccountManagerImpl) ReserveFunds(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error {
	available, err := m.accountRepo.WithTx(tx).Reserve(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, account.ErrInsufficientFunds) {
			m.logger.Warn("Withdrawal exceeds available balance", "user_id", userID.String(), "amount", amount)
		} else {
			m.logger.Error("Failed to reserve funds", "user_id", userID.String(), "amount", amount, "error", err)
		}
		return fmt.Errorf("failed to reserve funds for %s: %w", userID, err)
	}
	m.logger.Info("Funds reserved", "user_id", userID.String(), "amount", amount, "available", available)
	return nil
}

// ReleaseFunds drops the hold of a withdrawal that will not be paid out
func (m *AccountManagerImpl) ReleaseFunds(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error {
	if err := m.accountRepo.WithTx(tx).Release(ctx, userID, amount); err != nil {
		m.logger.Error("Failed to release funds", "user_id", userID.String(), "amount", amount, "error", err)
		return fmt.Errorf("failed to release funds for %s: %w", userID, err)
	}
	m.logger.Info("Funds released", "user_id", userID.String(), "amount", amount)
	return nil
}

// CaptureFunds debits a held withdrawal within tx and returns the new balance
func (m *AccountManagerImpl) CaptureFunds(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (int64, error) {
	balance, err := m.accountRepo.WithTx(tx).Capture(ctx, userID, amount)
	if err != nil {
		m.logger.Error("Failed to capture funds", "user_id", userID.String(), "amount", amount, "error", err)
		return 0, fmt.Errorf("failed to debit account %s: %w", userID, err)
	}
	m.logger.Info("Account debited", "user_id", userID.String(), "amount", amount, "balance", balance)
	return balance, nil
}
