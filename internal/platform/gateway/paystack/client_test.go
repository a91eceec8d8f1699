package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookstore-ledger/internal/config"
	"github.com/bookstore-ledger/internal/platform/gateway"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.GatewayConfig{
		BaseURL:                    server.URL,
		SecretKey:                  "sk_test_secret",
		CallbackURL:                "https://shop.example/callback",
		Timeout:                    200 * time.Millisecond,
		BreakerMaxRequests:         1,
		BreakerInterval:            time.Minute,
		BreakerTimeout:             time.Minute,
		BreakerConsecutiveFailures: 2,
	}
	return NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg, nil)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_InitializeCharge(t *testing.T) {
	var received initializeRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		writeJSON(w, http.StatusOK, `{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ref-1"}}`)
	})

	session, err := client.InitializeCharge(context.Background(), gateway.ChargeRequest{
		Email:     "ada@example.com",
		Amount:    500000,
		Currency:  "NGN",
		Reference: "ref-1",
		Metadata:  map[string]string{"user_id": "u-1", "type": "deposit"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.paystack.com/abc", session.AuthorizationURL)
	assert.Equal(t, "abc", session.AccessCode)
	assert.Equal(t, "ref-1", session.Reference)
	assert.Equal(t, int64(500000), received.Amount)
	assert.Equal(t, "https://shop.example/callback", received.CallbackURL)
	assert.Equal(t, "deposit", received.Metadata["type"])
}

func TestClient_InitializeCharge_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"status":false,"message":"Invalid key"}`)
	})

	_, err := client.InitializeCharge(context.Background(), gateway.ChargeRequest{Reference: "ref-1", Amount: 100})
	require.Error(t, err)
	assert.True(t, gateway.IsRejected(err))
	assert.False(t, errors.Is(err, gateway.ErrInconclusive))
}

func TestClient_ServerErrorIsInconclusive(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `{"status":false,"message":"upstream"}`)
	})

	_, err := client.InitializeCharge(context.Background(), gateway.ChargeRequest{Reference: "ref-1", Amount: 100})
	assert.ErrorIs(t, err, gateway.ErrInconclusive)
	assert.False(t, gateway.IsRejected(err))
}

func TestClient_TimeoutIsInconclusive(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		writeJSON(w, http.StatusOK, `{"status":true,"data":{}}`)
	})

	_, err := client.VerifyCharge(context.Background(), "ref-1")
	assert.ErrorIs(t, err, gateway.ErrInconclusive)
}

func TestClient_BreakerOpensOnInconclusiveOnly(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusServiceUnavailable, `{}`)
	})

	for i := 0; i < 2; i++ {
		_, err := client.VerifyCharge(context.Background(), "ref-1")
		require.ErrorIs(t, err, gateway.ErrInconclusive)
	}

	_, err := client.VerifyCharge(context.Background(), "ref-1")
	assert.ErrorIs(t, err, gateway.ErrInconclusive)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "open breaker must not reach the gateway")
}

func TestClient_RejectionsDoNotOpenBreaker(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnauthorized, `{"status":false,"message":"Invalid key"}`)
	})

	for i := 0; i < 4; i++ {
		_, err := client.InitializeCharge(context.Background(), gateway.ChargeRequest{Reference: "ref", Amount: 1})
		require.True(t, gateway.IsRejected(err))
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestClient_VerifyCharge(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   string
		outcome  gateway.Outcome
		amount   int64
		metadata map[string]string
	}{
		{
			name:     "success",
			body:     `{"status":true,"data":{"status":"success","reference":"ref-1","amount":500000,"currency":"NGN","metadata":{"user_id":"u-1"}}}`,
			status:   "success",
			outcome:  gateway.OutcomeConfirmed,
			amount:   500000,
			metadata: map[string]string{"user_id": "u-1"},
		},
		{
			name:    "failed",
			body:    `{"status":true,"data":{"status":"failed","reference":"ref-1","amount":500000,"currency":"NGN","metadata":""}}`,
			status:  "failed",
			outcome: gateway.OutcomeRejected,
			amount:  500000,
		},
		{
			name:    "abandoned",
			body:    `{"status":true,"data":{"status":"abandoned","reference":"ref-1","amount":500000,"currency":"NGN"}}`,
			status:  "abandoned",
			outcome: gateway.OutcomeInconclusive,
			amount:  500000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transaction/verify/ref-1", r.URL.Path)
				writeJSON(w, http.StatusOK, tt.body)
			})

			v, err := client.VerifyCharge(context.Background(), "ref-1")
			require.NoError(t, err)
			assert.Equal(t, tt.status, v.Status)
			assert.Equal(t, tt.outcome, v.Outcome)
			assert.Equal(t, tt.amount, v.Amount)
			assert.Equal(t, "NGN", v.Currency)
			assert.Equal(t, tt.metadata, v.Metadata)
		})
	}
}

func TestClient_VerifyUnknownReference(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"status":false,"message":"Transaction reference not found"}`)
	})

	v, err := client.VerifyCharge(context.Background(), "ref-404")
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusNotFound, v.Status)
	assert.Equal(t, gateway.OutcomeInconclusive, v.Outcome)
}

func TestClient_InitiateTransfer(t *testing.T) {
	var paths []string
	var transfer transferRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/transferrecipient":
			var recipient recipientRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&recipient))
			assert.Equal(t, "nuban", recipient.Type)
			assert.Equal(t, "0123456789", recipient.AccountNumber)
			writeJSON(w, http.StatusCreated, `{"status":true,"data":{"recipient_code":"RCP_1"}}`)
		case "/transfer":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&transfer))
			writeJSON(w, http.StatusOK, `{"status":true,"data":{"reference":"ref-t","transfer_code":"TRF_1","status":"pending"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	receipt, err := client.InitiateTransfer(context.Background(), gateway.TransferRequest{
		Name:          "Ada",
		AccountNumber: "0123456789",
		BankCode:      "058",
		Amount:        25000,
		Currency:      "NGN",
		Reference:     "ref-t",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/transferrecipient", "/transfer"}, paths)
	assert.Equal(t, "RCP_1", transfer.Recipient)
	assert.Equal(t, "balance", transfer.Source)
	assert.Equal(t, "ref-t", transfer.Reference)
	assert.Equal(t, "TRF_1", receipt.TransferCode)
}

func TestClient_VerifyTransfer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfer/verify/ref-t", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"status":true,"data":{"status":"reversed","reference":"ref-t","amount":25000,"currency":"NGN"}}`)
	})

	v, err := client.VerifyTransfer(context.Background(), "ref-t")
	require.NoError(t, err)
	assert.Equal(t, gateway.OutcomeRejected, v.Outcome)
}
