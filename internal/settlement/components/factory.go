package components

import (
	"log/slog"

	"github.com/bookstore-ledger/internal/config"
	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/outbox"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/platform/gateway"
	"github.com/bookstore-ledger/internal/platform/metrics"
	"github.com/bookstore-ledger/internal/platform/persistence"
	"github.com/bookstore-ledger/internal/settlement"
)

// Repositories groups the stores the settlement flow writes to
type Repositories struct {
	Accounts     account.Repository
	Books        book.Repository
	Records      book.RecordRepository
	Transactions payment.Repository
	Outbox       outbox.Repository
}

// CreateSettlementService creates the orchestrator with all its components
func CreateSettlementService(
	db persistence.TxRunner,
	repos Repositories,
	gw gateway.Client,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg *config.Config,
) *settlement.Service {
	outboxManager := NewOutboxManager(repos.Outbox, logger)
	accountManager := NewAccountManager(repos.Accounts, logger)

	return settlement.NewService(
		db,
		repos.Transactions,
		gw,
		NewTransactionValidator(logger),
		accountManager,
		NewInventoryManager(repos.Books, repos.Records, logger),
		outboxManager,
		NewFailureRecorder(db, repos.Transactions, accountManager, outboxManager, logger),
		settlement.Config{
			Currency:       cfg.Settlement.Currency,
			PendingExpiry:  cfg.Settlement.PendingExpiry,
			GatewayTimeout: cfg.Gateway.Timeout,
		},
		m,
		logger.With("component", "settlement"),
	)
}
