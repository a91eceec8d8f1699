package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookstore-ledger/internal/api_gateway/middleware"
	"github.com/bookstore-ledger/internal/domain/account"
	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/ledger"
	"github.com/bookstore-ledger/internal/domain/payment"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/settlement"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) InitiateDeposit(ctx context.Context, req *settlement.DepositRequest) (*settlement.Checkout, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Checkout), args.Error(1)
}

func (m *MockPaymentService) InitiatePurchase(ctx context.Context, req *settlement.PurchaseRequest) (*settlement.Checkout, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Checkout), args.Error(1)
}

func (m *MockPaymentService) InitiateTransfer(ctx context.Context, req *settlement.TransferRequest) (*payment.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockPaymentService) VerifyAndSettle(ctx context.Context, reference, correlationID string) (*payment.Transaction, error) {
	args := m.Called(ctx, reference, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockPaymentService) GetTransaction(ctx context.Context, reference string, caller shared.Identity) (*payment.Transaction, error) {
	args := m.Called(ctx, reference, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) ListTransactions(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) GetBook(ctx context.Context, bookID uuid.UUID) (*book.Book, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*book.Book), args.Error(1)
}

func (m *MockInventoryService) Borrow(ctx context.Context, bookID, userID uuid.UUID, dueDate time.Time) (*book.BorrowRecord, error) {
	args := m.Called(ctx, bookID, userID, dueDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*book.BorrowRecord), args.Error(1)
}

func (m *MockInventoryService) Return(ctx context.Context, bookID, userID uuid.UUID) error {
	return m.Called(ctx, bookID, userID).Error(0)
}

func (m *MockInventoryService) Buy(ctx context.Context, bookID, userID uuid.UUID, format string, quantity int) (*book.PurchaseRecord, error) {
	args := m.Called(ctx, bookID, userID, format, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*book.PurchaseRecord), args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) AcceptWebhook(ctx context.Context, body []byte, signature, correlationID string) (*shared.PaymentEvent, error) {
	args := m.Called(ctx, body, signature, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.PaymentEvent), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestRouter returns a router that authenticates every request as identity
func setupTestRouter(identity *shared.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	if identity != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.IdentityKey, *identity)
			c.Next()
		})
	}
	return r
}

func userIdentity() *shared.Identity {
	return &shared.Identity{UserID: uuid.New(), Role: shared.RoleUser}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the envelope and its data field into out
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) Response {
	t.Helper()
	var envelope struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	if out != nil {
		require.NotEmpty(t, envelope.Data, "'data' field should not be empty")
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return envelope.Response
}
