// Package gateway defines the payment gateway contract the settlement flow
// depends on, independent of any particular provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Outcome classifies a verification result
type Outcome int

const (
	// OutcomeInconclusive means the gateway has not reached a final status
	OutcomeInconclusive Outcome = iota
	// OutcomeConfirmed means the gateway reports the money moved
	OutcomeConfirmed
	// OutcomeRejected means the gateway reports a final failure
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRejected:
		return "rejected"
	default:
		return "inconclusive"
	}
}

// Raw statuses the settlement flow inspects directly
const (
	StatusSuccess   = "success"
	StatusAbandoned = "abandoned"
	// StatusNotFound is recorded when the gateway has no record of a reference
	StatusNotFound = "not_found"
)

// ErrInconclusive marks calls whose effect at the gateway is unknown:
// timeouts, network failures, 5xx responses and an open breaker
var ErrInconclusive = errors.New("gateway call inconclusive")

// RejectedError is a definitive refusal by the gateway
type RejectedError struct {
	Operation string
	Message   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway rejected %s: %s", e.Operation, e.Message)
}

// IsRejected reports whether err is a definitive gateway refusal
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

// ChargeRequest starts a hosted card checkout
type ChargeRequest struct {
	Email     string
	Amount    int64
	Currency  string
	Reference string
	Metadata  map[string]string
}

// ChargeSession is what the client needs to complete a checkout
type ChargeSession struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// TransferRequest pays out to a bank account
type TransferRequest struct {
	Name          string
	AccountNumber string
	BankCode      string
	Amount        int64
	Currency      string
	Reference     string
	Reason        string
}

// TransferReceipt acknowledges a queued transfer
type TransferReceipt struct {
	Reference    string
	TransferCode string
	Status       string
}

// Verification is the gateway's view of a reference
type Verification struct {
	Reference string
	Status    string // Raw status reported by the gateway
	Outcome   Outcome
	Amount    int64
	Currency  string
	Metadata  map[string]string
}

// Client is the payment gateway contract
type Client interface {
	InitializeCharge(ctx context.Context, req ChargeRequest) (*ChargeSession, error)
	VerifyCharge(ctx context.Context, reference string) (*Verification, error)
	InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferReceipt, error)
	VerifyTransfer(ctx context.Context, reference string) (*Verification, error)
}
