package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// SignatureHeader carries the HMAC of the webhook body
const SignatureHeader = "x-paystack-signature"

var ErrMissingReference = errors.New("webhook event has no reference")

// WebhookEvent is the part of a Paystack notification the service reads.
// Everything else is re-fetched through verification.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// Signer verifies webhook signatures with the account secret key
type Signer struct {
	secretKey []byte
}

// NewSigner creates a webhook signature verifier
func NewSigner(secretKey string) *Signer {
	return &Signer{secretKey: []byte(secretKey)}
}

// Sign returns the hex HMAC-SHA512 of body
func (s *Signer) Sign(body []byte) string {
	mac := hmac.New(sha512.New, s.secretKey)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body
func (s *Signer) Verify(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected, err := hex.DecodeString(s.Sign(body))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// ParseEvent extracts the event name and reference from a webhook body
func ParseEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	if event.Data.Reference == "" {
		return nil, ErrMissingReference
	}
	return &event, nil
}
