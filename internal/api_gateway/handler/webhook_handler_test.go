package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/platform/gateway/paystack"
)

func postWebhook(t *testing.T, notifications *MockNotificationService, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewWebhookHandler(newTestLogger(), notifications)
	r := setupTestRouter(nil)
	r.POST("/webhooks/paystack", h.Paystack)

	req, err := http.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set(paystack.SignatureHeader, signature)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestWebhookHandler_Paystack(t *testing.T) {
	body := `{"event":"charge.success","data":{"reference":"ref-1"}}`

	t.Run("Accepted", func(t *testing.T) {
		notifications := new(MockNotificationService)
		notifications.On("AcceptWebhook", mock.Anything, []byte(body), "sig", mock.AnythingOfType("string")).
			Return(&shared.PaymentEvent{Event: "charge.success", Reference: "ref-1"}, nil)

		rr := postWebhook(t, notifications, body, "sig")

		assert.Equal(t, http.StatusOK, rr.Code)
		var data map[string]string
		decodeData(t, rr, &data)
		assert.Equal(t, "ref-1", data["reference"])
		notifications.AssertExpectations(t)
	})

	t.Run("BadSignature", func(t *testing.T) {
		notifications := new(MockNotificationService)
		notifications.On("AcceptWebhook", mock.Anything, mock.Anything, "forged", mock.Anything).
			Return(nil, shared.NewError(shared.KindUnauthorized, "", nil, "invalid webhook signature"))

		rr := postWebhook(t, notifications, body, "forged")

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("BrokerDown", func(t *testing.T) {
		notifications := new(MockNotificationService)
		notifications.On("AcceptWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, shared.NewError(shared.KindUnavailable, "ref-1", errors.New("dial tcp"), "event queue unavailable"))

		rr := postWebhook(t, notifications, body, "sig")

		assert.Equal(t, http.StatusConflict, rr.Code)
		resp := decodeData(t, rr, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "ref-1", resp.Error.Reference)
	})
}
