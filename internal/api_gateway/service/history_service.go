package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookstore-ledger/internal/domain/ledger"
	"github.com/bookstore-ledger/internal/domain/shared"
)

// HistoryServiceImpl implements the HistoryService interface
type HistoryServiceImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewHistoryService creates a new history service
func NewHistoryService(logger *slog.Logger, ledgerRepo ledger.Repository) HistoryService {
	return &HistoryServiceImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

func (s *HistoryServiceImpl) ListTransactions(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	if page < 1 || perPage < 1 {
		return nil, 0, shared.NewError(shared.KindInvalidInput, "", nil, "page and per_page must be positive")
	}
	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.GetByUserID(ctx, userID, perPage, offset)
	if err != nil {
		s.logger.Error("Failed to list ledger history", "user_id", userID.String(), "error", err)
		return nil, 0, shared.NewError(shared.KindInternal, "", err, "failed to load transaction history")
	}

	total, err := s.ledgerRepo.CountByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count ledger history", "user_id", userID.String(), "error", err)
		return nil, 0, shared.NewError(shared.KindInternal, "", err, "failed to load transaction history")
	}

	return entries, total, nil
}
