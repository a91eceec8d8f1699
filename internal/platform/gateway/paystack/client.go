// Package paystack implements gateway.Client against the Paystack REST API.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/bookstore-ledger/internal/config"
	"github.com/bookstore-ledger/internal/platform/gateway"
	"github.com/bookstore-ledger/internal/platform/metrics"
)

const maxResponseBytes = 1 << 20

// Operation names used in logs and metrics
const (
	opInitialize      = "initialize_charge"
	opVerifyCharge    = "verify_charge"
	opCreateRecipient = "create_recipient"
	opTransfer        = "initiate_transfer"
	opVerifyTransfer  = "verify_transfer"
)

// Client talks to Paystack through a circuit breaker. Only inconclusive
// failures count against the breaker; definitive rejections do not.
type Client struct {
	baseURL     string
	secretKey   string
	callbackURL string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

var _ gateway.Client = (*Client)(nil)

// NewClient creates a Paystack client from the gateway configuration
func NewClient(logger *slog.Logger, cfg *config.GatewayConfig, m *metrics.Metrics) *Client {
	logger = logger.With("component", "paystack_client")

	settings := gobreaker.Settings{
		Name:        "paystack",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || gateway.IsRejected(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Gateway circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		breaker:     gobreaker.NewCircuitBreaker(settings),
		metrics:     m,
		logger:      logger,
	}
}

// envelope is the common Paystack response wrapper
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Metadata  json.RawMessage `json:"metadata"`
}

type recipientRequest struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency,omitempty"`
}

type recipientData struct {
	RecipientCode string `json:"recipient_code"`
}

type transferRequest struct {
	Source    string `json:"source"`
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
	Reference string `json:"reference"`
	Reason    string `json:"reason,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

type transferData struct {
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
}

// InitializeCharge starts a hosted checkout for the reference
func (c *Client) InitializeCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeSession, error) {
	body := initializeRequest{
		Email:       req.Email,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: c.callbackURL,
		Metadata:    req.Metadata,
	}

	var data initializeData
	if err := c.call(ctx, opInitialize, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}

	reference := data.Reference
	if reference == "" {
		reference = req.Reference
	}
	return &gateway.ChargeSession{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        reference,
	}, nil
}

// VerifyCharge reports the gateway's view of a charge
func (c *Client) VerifyCharge(ctx context.Context, reference string) (*gateway.Verification, error) {
	return c.verify(ctx, opVerifyCharge, "/transaction/verify/", reference)
}

// InitiateTransfer registers the destination account as a recipient and
// queues a transfer from the merchant balance under the given reference
func (c *Client) InitiateTransfer(ctx context.Context, req gateway.TransferRequest) (*gateway.TransferReceipt, error) {
	recipient := recipientRequest{
		Type:          "nuban",
		Name:          req.Name,
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
		Currency:      req.Currency,
	}

	var rdata recipientData
	if err := c.call(ctx, opCreateRecipient, http.MethodPost, "/transferrecipient", recipient, &rdata); err != nil {
		return nil, err
	}

	transfer := transferRequest{
		Source:    "balance",
		Amount:    req.Amount,
		Recipient: rdata.RecipientCode,
		Reference: req.Reference,
		Reason:    req.Reason,
		Currency:  req.Currency,
	}

	var tdata transferData
	if err := c.call(ctx, opTransfer, http.MethodPost, "/transfer", transfer, &tdata); err != nil {
		return nil, err
	}

	reference := tdata.Reference
	if reference == "" {
		reference = req.Reference
	}
	return &gateway.TransferReceipt{
		Reference:    reference,
		TransferCode: tdata.TransferCode,
		Status:       tdata.Status,
	}, nil
}

// VerifyTransfer reports the gateway's view of a transfer
func (c *Client) VerifyTransfer(ctx context.Context, reference string) (*gateway.Verification, error) {
	return c.verify(ctx, opVerifyTransfer, "/transfer/verify/", reference)
}

func (c *Client) verify(ctx context.Context, op, path, reference string) (*gateway.Verification, error) {
	var data verifyData
	err := c.call(ctx, op, http.MethodGet, path+url.PathEscape(reference), nil, &data)
	if err != nil {
		// The gateway answers 4xx for references it has never seen. The charge
		// may simply not have been attempted yet, so this is not a final failure.
		var rejected *gateway.RejectedError
		if errors.As(err, &rejected) && isNotFound(rejected.Message) {
			return &gateway.Verification{
				Reference: reference,
				Status:    gateway.StatusNotFound,
				Outcome:   gateway.OutcomeInconclusive,
			}, nil
		}
		return nil, err
	}

	if data.Reference == "" {
		data.Reference = reference
	}
	return &gateway.Verification{
		Reference: data.Reference,
		Status:    data.Status,
		Outcome:   classify(data.Status),
		Amount:    data.Amount,
		Currency:  data.Currency,
		Metadata:  stringify(data.Metadata),
	}, nil
}

// call executes one request through the breaker and decodes the envelope data into out
func (c *Client) call(ctx context.Context, op, method, path string, body, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, op, method, path, body, out)
	})

	switch {
	case err == nil:
		c.metrics.GatewayCall(op, metrics.OutcomeSuccess)
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.GatewayCall(op, metrics.OutcomeInconclusive)
		c.logger.Warn("Gateway call short-circuited", "operation", op, "error", err)
		return fmt.Errorf("%w: %s: %v", gateway.ErrInconclusive, op, err)
	case gateway.IsRejected(err):
		c.metrics.GatewayCall(op, metrics.OutcomeRejected)
		c.logger.Info("Gateway rejected call", "operation", op, "error", err)
		return err
	default:
		c.metrics.GatewayCall(op, metrics.OutcomeInconclusive)
		c.logger.Warn("Gateway call inconclusive", "operation", op, "error", err)
		return err
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &gateway.RejectedError{Operation: op, Message: "invalid request: " + err.Error()}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &gateway.RejectedError{Operation: op, Message: "invalid request: " + err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", gateway.ErrInconclusive, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: reading response: %v", gateway.ErrInconclusive, op, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s: status %d", gateway.ErrInconclusive, op, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &gateway.RejectedError{Operation: op, Message: fmt.Sprintf("status %d", resp.StatusCode)}
		}
		return fmt.Errorf("%w: %s: malformed response: %v", gateway.ErrInconclusive, op, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		return &gateway.RejectedError{Operation: op, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: %s: malformed data: %v", gateway.ErrInconclusive, op, err)
		}
	}
	return nil
}

// classify maps a raw Paystack charge or transfer status to an outcome
func classify(status string) gateway.Outcome {
	switch strings.ToLower(status) {
	case "success":
		return gateway.OutcomeConfirmed
	case "failed", "reversed", "rejected":
		return gateway.OutcomeRejected
	default:
		// abandoned, ongoing, pending, processing, queued, otp, received
		return gateway.OutcomeInconclusive
	}
}

func isNotFound(message string) bool {
	return strings.Contains(strings.ToLower(message), "not found")
}

// stringify flattens metadata, which Paystack sends as an object or as an
// empty string/number when none was attached
func stringify(raw json.RawMessage) map[string]string {
	var in map[string]interface{}
	if err := json.Unmarshal(raw, &in); err != nil || len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = fmt.Sprint(v)
	}
	return out
}
