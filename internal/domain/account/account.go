package account

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bookstore-ledger/internal/domain/shared"
)

// Roles assigned by the identity provider
const (
	RoleUser  = shared.RoleUser
	RoleAdmin = shared.RoleAdmin
)

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrNoHold            = errors.New("no funds held for amount")
)

// Account is a bookstore user's wallet. Balance is mutated only through the
// repository's atomic operations. Reserved is the part of Balance held for
// withdrawals the gateway may still pay out.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Balance   int64     `json:"balance"` // Stored in kobo/minor units
	Reserved  int64     `json:"reserved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Available is the balance not held for pending withdrawals
func (a *Account) Available() int64 {
	return a.Balance - a.Reserved
}

// CanCover reports whether the available balance read at this snapshot covers
// amount. Holds are taken by Repository.Reserve against the live row.
func (a *Account) CanCover(amount int64) bool {
	return a.Available() >= amount
}

// IsAdmin reports whether the account holds the admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
