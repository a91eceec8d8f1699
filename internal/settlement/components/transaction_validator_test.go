package components

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/settlement"
)

func TestTransactionValidator_ValidateDeposit(t *testing.T) {
	validator := NewTransactionValidator(newTestLogger())
	userID := uuid.New()

	tests := []struct {
		name    string
		request *settlement.DepositRequest
		wantErr bool
	}{
		{"valid", &settlement.DepositRequest{UserID: userID, Amount: 100}, false},
		{"valid with reference", &settlement.DepositRequest{UserID: userID, Amount: 100, Reference: "order_12.a=b-c"}, false},
		{"zero amount", &settlement.DepositRequest{UserID: userID, Amount: 0}, true},
		{"negative amount", &settlement.DepositRequest{UserID: userID, Amount: -1}, true},
		{"reference with spaces", &settlement.DepositRequest{UserID: userID, Amount: 100, Reference: "a b"}, true},
		{"reference too long", &settlement.DepositRequest{UserID: userID, Amount: 100, Reference: strings.Repeat("x", 101)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateDeposit(tt.request)
			if tt.wantErr {
				assert.Equal(t, shared.KindInvalidInput, shared.KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransactionValidator_MissingCallerIsUnauthorized(t *testing.T) {
	validator := NewTransactionValidator(newTestLogger())

	assert.ErrorIs(t, validator.ValidateDeposit(&settlement.DepositRequest{Amount: 100}), shared.ErrUnauthorized)
	assert.ErrorIs(t, validator.ValidateTransfer(&settlement.TransferRequest{
		Amount: 100, AccountNumber: "0001234567", BankCode: "058",
	}), shared.ErrUnauthorized)
	assert.ErrorIs(t, validator.ValidatePurchase(&settlement.PurchaseRequest{
		BookID: uuid.New(), Format: book.FormatPhysical, Quantity: 1,
	}), shared.ErrUnauthorized)
}

func TestTransactionValidator_ValidateTransfer(t *testing.T) {
	validator := NewTransactionValidator(newTestLogger())
	valid := func() *settlement.TransferRequest {
		return &settlement.TransferRequest{UserID: uuid.New(), Amount: 100, AccountNumber: "0001234567", BankCode: "058"}
	}

	assert.NoError(t, validator.ValidateTransfer(valid()))

	short := valid()
	short.AccountNumber = "12345"
	assert.ErrorIs(t, validator.ValidateTransfer(short), shared.ErrInvalidInput)

	noBank := valid()
	noBank.BankCode = ""
	assert.ErrorIs(t, validator.ValidateTransfer(noBank), shared.ErrInvalidInput)

	noAmount := valid()
	noAmount.Amount = 0
	assert.ErrorIs(t, validator.ValidateTransfer(noAmount), shared.ErrInvalidInput)
}

func TestTransactionValidator_ValidatePurchase(t *testing.T) {
	validator := NewTransactionValidator(newTestLogger())
	valid := func() *settlement.PurchaseRequest {
		return &settlement.PurchaseRequest{UserID: uuid.New(), BookID: uuid.New(), Format: book.FormatPhysical, Quantity: 2}
	}

	assert.NoError(t, validator.ValidatePurchase(valid()))

	noQuantity := valid()
	noQuantity.Quantity = 0
	assert.ErrorIs(t, validator.ValidatePurchase(noQuantity), shared.ErrInvalidInput)

	tooMany := valid()
	tooMany.Quantity = book.MaxQuantity + 1
	assert.ErrorIs(t, validator.ValidatePurchase(tooMany), shared.ErrInvalidInput)

	badFormat := valid()
	badFormat.Format = "hardcover"
	assert.ErrorIs(t, validator.ValidatePurchase(badFormat), shared.ErrInvalidInput)

	noBook := valid()
	noBook.BookID = uuid.Nil
	assert.ErrorIs(t, validator.ValidatePurchase(noBook), shared.ErrInvalidInput)
}
