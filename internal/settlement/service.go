// Package settlement drives payment transactions from initiation through
// gateway verification to exactly-once application of their effect.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/platform/gateway"
	"github.com/bookstore-ledger/internal/platform/metrics"
	"github.com/bookstore-ledger/internal/platform/persistence"
)

var errSettlementRace = errors.New("transaction left pending while locked")

// Config holds the settlement settings
type Config struct {
	Currency       string
	PendingExpiry  time.Duration
	GatewayTimeout time.Duration
}

// Service is the transaction orchestrator
type Service struct {
	db        persistence.TxRunner
	txnRepo   payment.Repository
	gateway   gateway.Client
	validator TransactionValidator
	accounts  AccountManager
	inventory InventoryManager
	outbox    OutboxManager
	failures  FailureRecorder
	metrics   *metrics.Metrics
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates the orchestrator
func NewService(
	db persistence.TxRunner,
	txnRepo payment.Repository,
	gw gateway.Client,
	validator TransactionValidator,
	accounts AccountManager,
	inventory InventoryManager,
	outbox OutboxManager,
	failures FailureRecorder,
	cfg Config,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:        db,
		txnRepo:   txnRepo,
		gateway:   gw,
		validator: validator,
		accounts:  accounts,
		inventory: inventory,
		outbox:    outbox,
		failures:  failures,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// InitiateDeposit records a pending deposit and opens a hosted checkout for it
func (s *Service) InitiateDeposit(ctx context.Context, req *DepositRequest) (*Checkout, error) {
	if err := s.validator.ValidateDeposit(req); err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetAccount(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	txn, err := payment.NewTransaction(req.UserID, shared.TransactionTypeDeposit, req.Amount, s.cfg.Currency, req.Reference)
	if err != nil {
		return nil, shared.NewError(shared.KindInvalidInput, req.Reference, err, "%s", err.Error())
	}

	if err := s.createPending(ctx, txn, req.CorrelationID); err != nil {
		return nil, err
	}

	session, err := s.initializeCharge(ctx, acc, txn)
	if err != nil {
		return nil, s.handleInitiateError(ctx, txn, req.CorrelationID, err)
	}

	return &Checkout{
		AuthorizationURL: session.AuthorizationURL,
		AccessCode:       session.AccessCode,
		Reference:        txn.Reference,
		Amount:           txn.Amount,
	}, nil
}

// InitiatePurchase prices a book purchase, records it as pending and opens a
// hosted checkout. Stock is only taken when the payment settles.
func (s *Service) InitiatePurchase(ctx context.Context, req *PurchaseRequest) (*Checkout, error) {
	if err := s.validator.ValidatePurchase(req); err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetAccount(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	b, err := s.inventory.CheckAvailability(ctx, req.BookID, req.Format, req.Quantity)
	if err != nil {
		return nil, err
	}

	amount, err := shared.MultiplyAmount(b.Price, req.Quantity)
	if err != nil {
		return nil, shared.NewError(shared.KindInvalidInput, req.Reference, err, "order total is too large")
	}
	txn, err := payment.NewTransaction(req.UserID, shared.TransactionTypePurchase, amount, s.cfg.Currency, req.Reference)
	if err != nil {
		return nil, shared.NewError(shared.KindInvalidInput, req.Reference, err, "%s", err.Error())
	}
	bookID := req.BookID
	txn.BookID = &bookID
	txn.Format = string(req.Format)
	txn.Quantity = req.Quantity

	if err := s.createPending(ctx, txn, req.CorrelationID); err != nil {
		return nil, err
	}

	session, err := s.initializeCharge(ctx, acc, txn)
	if err != nil {
		return nil, s.handleInitiateError(ctx, txn, req.CorrelationID, err)
	}

	return &Checkout{
		AuthorizationURL: session.AuthorizationURL,
		AccessCode:       session.AccessCode,
		Reference:        txn.Reference,
		Amount:           txn.Amount,
	}, nil
}

// InitiateTransfer pays wallet funds out to a bank account. The amount is held
// on the wallet before the gateway is asked to pay, and debited only once the
// gateway confirms the transfer; a transfer the gateway has queued but not
// completed is returned still pending with its hold in place.
func (s *Service) InitiateTransfer(ctx context.Context, req *TransferRequest) (*payment.Transaction, error) {
	logger := s.requestLogger(req.CorrelationID)

	if err := s.validator.ValidateTransfer(req); err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetAccount(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	txn, err := payment.NewTransaction(req.UserID, shared.TransactionTypeTransfer, req.Amount, s.cfg.Currency, req.Reference)
	if err != nil {
		return nil, shared.NewError(shared.KindInvalidInput, req.Reference, err, "%s", err.Error())
	}
	txn.Recipient = req.AccountNumber
	txn.RecipientRoute = req.BankCode

	if err := s.createPending(ctx, txn, req.CorrelationID); err != nil {
		return nil, err
	}

	gctx, cancel := s.gatewayContext(ctx)
	_, err = s.gateway.InitiateTransfer(gctx, gateway.TransferRequest{
		Name:          acc.Name,
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Reference:     txn.Reference,
		Reason:        "Wallet withdrawal",
	})
	cancel()
	if err != nil {
		return nil, s.handleInitiateError(ctx, txn, req.CorrelationID, err)
	}

	settled, err := s.VerifyAndSettle(ctx, txn.Reference, req.CorrelationID)
	if err != nil && shared.KindOf(err) == shared.KindVerificationFailed && settled != nil && settled.IsPending() {
		logger.Info("Transfer queued at gateway, settlement deferred", "reference", txn.Reference)
		return settled, nil
	}
	return settled, err
}

// VerifyAndSettle asks the gateway for the final status of reference and, when
// the money moved, applies the transaction's effect exactly once. Calling it
// again for a settled reference returns the stored result without side effects.
func (s *Service) VerifyAndSettle(ctx context.Context, reference, correlationID string) (*payment.Transaction, error) {
	logger := s.requestLogger(correlationID).With("reference", reference)

	txn, err := s.txnRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, s.lookupError(reference, err)
	}
	if txn.Status.IsFinal() {
		return s.storedResult(txn)
	}

	verification, err := s.verify(ctx, txn)
	if err != nil {
		logger.Warn("Verification inconclusive, transaction stays pending", "error", err)
		s.metrics.Settlement(string(txn.Type), metrics.OutcomeInconclusive)
		return txn, shared.NewError(shared.KindVerificationFailed, reference, err, "payment could not be verified yet")
	}

	switch verification.Outcome {
	case gateway.OutcomeRejected:
		logger.Info("Gateway reports payment unsuccessful", "gateway_status", verification.Status)
		return s.fail(ctx, txn, shared.FailureReasonPaymentUnsuccessful, verification.Status, correlationID)
	case gateway.OutcomeInconclusive:
		s.recordGatewayStatus(ctx, txn, verification.Status)
		s.metrics.Settlement(string(txn.Type), metrics.OutcomePending)
		return txn, shared.NewError(shared.KindVerificationFailed, reference, nil,
			"payment is not complete (gateway status: %s)", displayStatus(verification.Status))
	}

	if verification.Amount != txn.Amount ||
		(verification.Currency != "" && !strings.EqualFold(verification.Currency, txn.Currency)) {
		logger.Error("Gateway amount or currency does not match transaction",
			"expected_amount", txn.Amount,
			"gateway_amount", verification.Amount,
			"expected_currency", txn.Currency,
			"gateway_currency", verification.Currency)
		s.metrics.Settlement(string(txn.Type), metrics.OutcomeError)
		return txn, shared.NewError(shared.KindVerificationFailed, reference, nil,
			"gateway amount or currency does not match the transaction")
	}

	return s.settle(ctx, txn, verification.Status, correlationID)
}

// Reconcile settles reference if the gateway has a final answer and expires it
// when it has been abandoned past the pending expiry
func (s *Service) Reconcile(ctx context.Context, reference, correlationID string) (*payment.Transaction, error) {
	txn, err := s.VerifyAndSettle(ctx, reference, correlationID)
	if err == nil || shared.KindOf(err) != shared.KindVerificationFailed || txn == nil || !txn.IsPending() {
		return txn, err
	}

	expired, expireErr := s.ExpireStale(ctx, reference, correlationID)
	if expireErr != nil {
		return txn, expireErr
	}
	if !expired {
		return txn, err
	}

	current, lookupErr := s.txnRepo.GetByReference(ctx, reference)
	if lookupErr != nil {
		return txn, s.lookupError(reference, lookupErr)
	}
	return s.storedResult(current)
}

// ExpireStale fails a pending transaction that is older than the pending
// expiry and that the gateway reports as abandoned or does not know. It
// reports whether the transaction was failed by this call.
func (s *Service) ExpireStale(ctx context.Context, reference, correlationID string) (bool, error) {
	txn, err := s.txnRepo.GetByReference(ctx, reference)
	if err != nil {
		return false, s.lookupError(reference, err)
	}
	if !txn.IsPending() || txn.Age(s.now()) <= s.cfg.PendingExpiry || !expirable(txn.GatewayStatus) {
		return false, nil
	}

	applied, err := s.failures.RecordFailure(ctx, reference, shared.FailureReasonExpired, txn.GatewayStatus, correlationID)
	if err != nil {
		return false, shared.NewError(shared.KindInternal, reference, err, "failed to expire transaction")
	}
	if applied {
		s.requestLogger(correlationID).Info("Expired stale pending transaction",
			"reference", reference,
			"gateway_status", txn.GatewayStatus,
			"age", txn.Age(s.now()).String())
		s.metrics.Settlement(string(txn.Type), metrics.OutcomeFailed)
	}
	return applied, nil
}

// GetTransaction returns a transaction to its owner or to an admin
func (s *Service) GetTransaction(ctx context.Context, reference string, caller shared.Identity) (*payment.Transaction, error) {
	txn, err := s.txnRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, s.lookupError(reference, err)
	}
	if !caller.CanAccess(txn.UserID) {
		s.logger.Warn("Transaction read denied", "reference", reference, "user_id", caller.UserID.String())
		return nil, shared.NewError(shared.KindForbidden, reference, nil, "transaction belongs to another user")
	}
	return txn, nil
}

// settle applies the effect of a confirmed transaction. The row lock makes
// concurrent settlements of one reference queue; whichever finds the row no
// longer pending returns the stored result instead of applying again.
func (s *Service) settle(ctx context.Context, txn *payment.Transaction, gatewayStatus, correlationID string) (*payment.Transaction, error) {
	logger := s.requestLogger(correlationID).With("reference", txn.Reference)

	var settled *payment.Transaction
	won := false
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.txnRepo.WithTx(tx)

		locked, err := repo.LockForUpdate(ctx, txn.Reference)
		if err != nil {
			return err
		}
		if !locked.IsPending() {
			settled = locked
			return nil
		}

		outcome, err := s.applyEffect(ctx, tx, locked)
		if err != nil {
			return err
		}
		outcome.GatewayStatus = gatewayStatus

		applied, err := repo.Transition(ctx, txn.Reference, shared.TransactionStatusSuccess, outcome)
		if err != nil {
			return err
		}
		if !applied {
			return errSettlementRace
		}

		settled, err = repo.GetByReference(ctx, txn.Reference)
		if err != nil {
			return err
		}
		won = true
		return s.outbox.CreateOutboxEntry(ctx, tx, settled, correlationID)
	})
	if err != nil {
		logger.Error("Failed to apply settlement, transaction stays pending", "type", txn.Type, "error", err)
		s.metrics.Settlement(string(txn.Type), metrics.OutcomeError)
		return txn, shared.NewError(shared.KindEffectApplicationFailed, txn.Reference, err, "settlement could not be applied and will be retried")
	}

	if won {
		logger.Info("Transaction settled", "type", txn.Type, "amount", txn.Amount, "failure_reason", settled.FailureReason)
		s.metrics.Settlement(string(txn.Type), metrics.OutcomeSuccess)
	} else {
		logger.Info("Transaction already settled by a concurrent attempt", "status", settled.Status)
	}
	return s.storedResult(settled)
}

func (s *Service) applyEffect(ctx context.Context, tx pgx.Tx, txn *payment.Transaction) (payment.Outcome, error) {
	switch txn.Type {
	case shared.TransactionTypeDeposit:
		balance, err := s.accounts.ApplyCredit(ctx, tx, txn.UserID, txn.Amount)
		if err != nil {
			return payment.Outcome{}, err
		}
		return payment.Outcome{BalanceAfter: &balance}, nil

	case shared.TransactionTypeTransfer:
		balance, err := s.accounts.CaptureFunds(ctx, tx, txn.UserID, txn.Amount)
		if err != nil {
			return payment.Outcome{}, err
		}
		return payment.Outcome{BalanceAfter: &balance}, nil

	case shared.TransactionTypePurchase:
		err := s.inventory.ApplyPurchase(ctx, tx, txn)
		if err == nil {
			return payment.Outcome{}, nil
		}
		if !errors.Is(err, book.ErrInsufficientStock{}) {
			return payment.Outcome{}, err
		}

		// Paid for but no longer in stock: the money goes to the wallet.
		s.logger.Warn("Stock gone at settlement, crediting payment to wallet", "reference", txn.Reference, "amount", txn.Amount)
		balance, err := s.accounts.ApplyCredit(ctx, tx, txn.UserID, txn.Amount)
		if err != nil {
			return payment.Outcome{}, err
		}
		return payment.Outcome{
			FailureReason: string(shared.FailureReasonStockUnavailableCredited),
			BalanceAfter:  &balance,
		}, nil
	}

	return payment.Outcome{}, fmt.Errorf("unsupported transaction type %q", txn.Type)
}

// createPending records txn and its history snapshot. A withdrawal reserves
// its amount in the same transaction, so the gateway is never asked to pay
// out funds another withdrawal already holds.
func (s *Service) createPending(ctx context.Context, txn *payment.Transaction, correlationID string) error {
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.txnRepo.WithTx(tx).Create(ctx, txn); err != nil {
			return err
		}
		if txn.Type == shared.TransactionTypeTransfer {
			if err := s.accounts.ReserveFunds(ctx, tx, txn.UserID, txn.Amount); err != nil {
				return err
			}
		}
		return s.outbox.CreateOutboxEntry(ctx, tx, txn, correlationID)
	})
	if err != nil {
		if errors.Is(err, payment.ErrDuplicateReference{}) {
			return shared.NewError(shared.KindDuplicate, txn.Reference, err, "reference %s has already been used", txn.Reference)
		}
		if errors.Is(err, account.ErrInsufficientFunds) {
			s.requestLogger(correlationID).Warn("Transfer exceeds available balance",
				"reference", txn.Reference,
				"user_id", txn.UserID.String(),
				"amount", txn.Amount)
			return shared.NewError(shared.KindUnavailable, txn.Reference, err, "insufficient wallet balance")
		}
		s.logger.Error("Failed to record pending transaction", "reference", txn.Reference, "error", err)
		return shared.NewError(shared.KindInternal, txn.Reference, err, "failed to record transaction")
	}

	s.requestLogger(correlationID).Info("Transaction pending",
		"reference", txn.Reference,
		"type", txn.Type,
		"user_id", txn.UserID.String(),
		"amount", txn.Amount)
	return nil
}

func (s *Service) initializeCharge(ctx context.Context, acc *account.Account, txn *payment.Transaction) (*gateway.ChargeSession, error) {
	metadata := map[string]string{
		"user_id": txn.UserID.String(),
		"type":    string(txn.Type),
	}
	if txn.BookID != nil {
		metadata["book_id"] = txn.BookID.String()
		metadata["format"] = txn.Format
		metadata["quantity"] = strconv.Itoa(txn.Quantity)
	}

	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()

	return s.gateway.InitializeCharge(gctx, gateway.ChargeRequest{
		Email:     acc.Email,
		Amount:    txn.Amount,
		Currency:  txn.Currency,
		Reference: txn.Reference,
		Metadata:  metadata,
	})
}

// handleInitiateError fails the transaction on a definitive refusal and leaves
// it pending for the sweep when the outcome at the gateway is unknown
func (s *Service) handleInitiateError(ctx context.Context, txn *payment.Transaction, correlationID string, err error) error {
	logger := s.requestLogger(correlationID).With("reference", txn.Reference)

	if gateway.IsRejected(err) {
		logger.Warn("Gateway rejected transaction", "type", txn.Type, "error", err)
		if _, recordErr := s.failures.RecordFailure(ctx, txn.Reference, shared.FailureReasonGatewayRejected, "", correlationID); recordErr != nil {
			logger.Error("Failed to record gateway rejection", "error", recordErr)
		}
		s.metrics.Settlement(string(txn.Type), metrics.OutcomeRejected)
		return shared.NewError(shared.KindGatewayError, txn.Reference, err, "payment gateway rejected the request")
	}

	logger.Warn("Gateway call inconclusive, transaction stays pending", "type", txn.Type, "error", err)
	s.metrics.Settlement(string(txn.Type), metrics.OutcomeInconclusive)
	return shared.NewError(shared.KindGatewayError, txn.Reference, err, "payment gateway unavailable, transaction %s is pending", txn.Reference)
}

func (s *Service) verify(ctx context.Context, txn *payment.Transaction) (*gateway.Verification, error) {
	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()

	if txn.Type == shared.TransactionTypeTransfer {
		return s.gateway.VerifyTransfer(gctx, txn.Reference)
	}
	return s.gateway.VerifyCharge(gctx, txn.Reference)
}

func (s *Service) fail(ctx context.Context, txn *payment.Transaction, reason shared.FailureReason, gatewayStatus, correlationID string) (*payment.Transaction, error) {
	applied, err := s.failures.RecordFailure(ctx, txn.Reference, reason, gatewayStatus, correlationID)
	if err != nil {
		return txn, shared.NewError(shared.KindInternal, txn.Reference, err, "failed to record transaction failure")
	}
	if applied {
		s.metrics.Settlement(string(txn.Type), metrics.OutcomeFailed)
	}

	current, err := s.txnRepo.GetByReference(ctx, txn.Reference)
	if err != nil {
		return txn, s.lookupError(txn.Reference, err)
	}
	return s.storedResult(current)
}

// recordGatewayStatus is best effort; the status only feeds expiry decisions
func (s *Service) recordGatewayStatus(ctx context.Context, txn *payment.Transaction, status string) {
	if status == "" || status == txn.GatewayStatus {
		return
	}
	if err := s.txnRepo.RecordGatewayStatus(ctx, txn.Reference, status); err != nil {
		s.logger.Warn("Failed to record gateway status", "reference", txn.Reference, "gateway_status", status, "error", err)
		return
	}
	txn.GatewayStatus = status
}

// storedResult maps a transaction's persisted state to the caller-facing result
func (s *Service) storedResult(txn *payment.Transaction) (*payment.Transaction, error) {
	switch txn.Status {
	case shared.TransactionStatusSuccess:
		return txn, nil
	case shared.TransactionStatusFailed:
		return txn, shared.NewError(shared.KindVerificationFailed, txn.Reference, nil, "transaction failed: %s", txn.FailureReason)
	default:
		return txn, shared.NewError(shared.KindVerificationFailed, txn.Reference, nil, "payment is not complete")
	}
}

func (s *Service) lookupError(reference string, err error) error {
	if errors.Is(err, payment.ErrTransactionNotFound{}) {
		return shared.NewError(shared.KindNotFound, reference, err, "transaction %s not found", reference)
	}
	s.logger.Error("Failed to load transaction", "reference", reference, "error", err)
	return shared.NewError(shared.KindInternal, reference, err, "failed to load transaction")
}

func (s *Service) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.GatewayTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.GatewayTimeout)
}

func (s *Service) requestLogger(correlationID string) *slog.Logger {
	if correlationID == "" {
		return s.logger
	}
	return s.logger.With("correlation_id", correlationID)
}

func expirable(gatewayStatus string) bool {
	return gatewayStatus == gateway.StatusAbandoned || gatewayStatus == gateway.StatusNotFound
}

func displayStatus(status string) string {
	if status == "" {
		return string(shared.TransactionStatusPending)
	}
	return status
}
