package shared

// TransactionType defines the monetary operations the settlement flow supports
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeTransfer TransactionType = "transfer"
	TransactionTypePurchase TransactionType = "purchase"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeTransfer, TransactionTypePurchase:
		return true
	}
	return false
}

// TransactionStatus defines transaction lifecycle states.
// The only legal transitions are pending -> success and pending -> failed.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// IsFinal reports whether no further transition is allowed from s
func (s TransactionStatus) IsFinal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

// FailureReason defines why a transaction was failed or settled differently
type FailureReason string

const (
	FailureReasonGatewayRejected          FailureReason = "GATEWAY_REJECTED"
	FailureReasonPaymentUnsuccessful      FailureReason = "PAYMENT_UNSUCCESSFUL"
	FailureReasonExpired                  FailureReason = "EXPIRED_WITHOUT_PAYMENT"
	FailureReasonStockUnavailableCredited FailureReason = "STOCK_UNAVAILABLE_CREDITED"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
