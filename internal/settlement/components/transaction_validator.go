package components

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/settlement"
)

const maxReferenceLength = 100

type TransactionValidatorImpl struct {
	logger *slog.Logger
}

func NewTransactionValidator(logger *slog.Logger) settlement.TransactionValidator {
	return &TransactionValidatorImpl{
		logger: logger,
	}
}

// ValidateDeposit checks a deposit request
func (v *TransactionValidatorImpl) ValidateDeposit(req *settlement.DepositRequest) error {
	if err := v.requireCaller(req.CorrelationID, req.Reference, req.UserID); err != nil {
		return err
	}
	return v.reject(req.CorrelationID, req.Reference, validateCommon(req.Amount, req.Reference))
}

// ValidateTransfer checks a payout request, including the destination account
func (v *TransactionValidatorImpl) ValidateTransfer(req *settlement.TransferRequest) error {
	if err := v.requireCaller(req.CorrelationID, req.Reference, req.UserID); err != nil {
		return err
	}
	if msg := validateCommon(req.Amount, req.Reference); msg != "" {
		return v.reject(req.CorrelationID, req.Reference, msg)
	}
	if !isDigits(req.AccountNumber) || len(req.AccountNumber) != 10 {
		return v.reject(req.CorrelationID, req.Reference, "account_number must be a 10 digit bank account number")
	}
	if !isDigits(req.BankCode) {
		return v.reject(req.CorrelationID, req.Reference, "bank_code must be a numeric bank code")
	}
	return nil
}

// ValidatePurchase checks a gateway-paid book purchase request. The amount is
// derived from the catalog price, so only the order itself is checked here.
func (v *TransactionValidatorImpl) ValidatePurchase(req *settlement.PurchaseRequest) error {
	if err := v.requireCaller(req.CorrelationID, req.Reference, req.UserID); err != nil {
		return err
	}
	switch {
	case req.BookID == uuid.Nil:
		return v.reject(req.CorrelationID, req.Reference, "book_id is required")
	case req.Quantity <= 0 || req.Quantity > book.MaxQuantity:
		return v.reject(req.CorrelationID, req.Reference, "quantity must be between 1 and 1000")
	}
	if _, err := book.ParseFormat(string(req.Format)); err != nil {
		return v.reject(req.CorrelationID, req.Reference, "format must be physical, ebook or audiobook")
	}
	return v.reject(req.CorrelationID, req.Reference, validateReference(req.Reference))
}

func (v *TransactionValidatorImpl) reject(correlationID, reference, msg string) error {
	if msg == "" {
		return nil
	}
	logger := v.logger
	if correlationID != "" {
		logger = v.logger.With("correlation_id", correlationID)
	}
	logger.Warn("Transaction request rejected", "reference", reference, "reason", msg)
	return shared.NewError(shared.KindInvalidInput, reference, nil, "%s", msg)
}

// requireCaller rejects requests that carry no authenticated user
func (v *TransactionValidatorImpl) requireCaller(correlationID, reference string, userID uuid.UUID) error {
	if userID != uuid.Nil {
		return nil
	}
	v.logger.Warn("Transaction request without caller", "reference", reference, "correlation_id", correlationID)
	return shared.NewError(shared.KindUnauthorized, reference, nil, "authentication required")
}

func validateCommon(amount int64, reference string) string {
	if amount <= 0 {
		return "amount must be greater than zero"
	}
	return validateReference(reference)
}

// validateReference accepts the characters the gateway allows in references
func validateReference(reference string) string {
	if len(reference) > maxReferenceLength {
		return "reference must be at most 100 characters"
	}
	for _, r := range reference {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '.', r == '=', r == '_':
		default:
			return "reference may only contain letters, digits, '-', '.', '=' and '_'"
		}
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
