package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bookstore-ledger/internal/api_gateway/middleware"
	"github.com/bookstore-ledger/internal/api_gateway/service"
	"github.com/bookstore-ledger/internal/domain/book"
	"github.com/bookstore-ledger/internal/domain/shared"
	"github.com/bookstore-ledger/internal/settlement"
)

// PaymentHandler handles HTTP requests for gateway-backed payments
type PaymentHandler struct {
	paymentService service.PaymentService
	historyService service.HistoryService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService, historyService service.HistoryService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		historyService: historyService,
		logger:         logger,
	}
}

// Initialize opens a hosted checkout that funds the caller's wallet
func (h *PaymentHandler) Initialize(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c)
		return
	}

	var req InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := req.Amount.MinorUnits()
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	checkout, err := h.paymentService.InitiateDeposit(c.Request.Context(), &settlement.DepositRequest{
		UserID:        identity.UserID,
		Amount:        amount,
		Reference:     req.Reference,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapCheckoutToResponse(checkout))
}

// Verify settles a reference the caller owns. Repeated calls return the
// stored result.
func (h *PaymentHandler) Verify(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c)
		return
	}

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	if _, err := h.paymentService.GetTransaction(ctx, req.Reference, identity); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	txn, err := h.paymentService.VerifyAndSettle(ctx, req.Reference, middleware.GetCorrelationID(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// Transfer pays wallet funds out to a bank account. A transfer the gateway
// has not finalized yet is reported with 202.
func (h *PaymentHandler) Transfer(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c)
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := req.Amount.MinorUnits()
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	txn, err := h.paymentService.InitiateTransfer(c.Request.Context(), &settlement.TransferRequest{
		UserID:        identity.UserID,
		Amount:        amount,
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
		Reference:     req.Reference,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	if txn.IsPending() {
		RespondAccepted(c, mapTransactionToResponse(txn))
		return
	}
	RespondOK(c, mapTransactionToResponse(txn))
}

// Purchase opens a hosted checkout for copies of a book
func (h *PaymentHandler) Purchase(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c)
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		RespondBadRequest(c, "Invalid book ID")
		return
	}
	format, err := book.ParseFormat(req.Format)
	if err != nil {
		RespondBadRequest(c, "Invalid format")
		return
	}

	checkout, err := h.paymentService.InitiatePurchase(c.Request.Context(), &settlement.PurchaseRequest{
		UserID:        identity.UserID,
		BookID:        bookID,
		Format:        format,
		Quantity:      req.Quantity,
		Reference:     req.Reference,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapCheckoutToResponse(checkout))
}

// GetByReference returns a transaction the caller owns
func (h *PaymentHandler) GetByReference(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c)
		return
	}

	txn, err := h.paymentService.GetTransaction(c.Request.Context(), c.Param("reference"), identity)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// List pages through the caller's settled history. Admins may read another
// user's history with ?user_id.
func (h *PaymentHandler) List(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c)
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	userID := identity.UserID
	if pagination.UserID != "" {
		requested, err := uuid.Parse(pagination.UserID)
		if err != nil {
			RespondBadRequest(c, "Invalid user ID")
			return
		}
		if !identity.CanAccess(requested) {
			RespondWithError(c, http.StatusForbidden, shared.KindForbidden, "history belongs to another user", "")
			return
		}
		userID = requested
	}

	entries, total, err := h.historyService.ListTransactions(c.Request.Context(), userID, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	transactions := make([]TransactionResponse, 0, len(entries))
	for _, entry := range entries {
		transactions = append(transactions, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, transactions, pagination.Page, pagination.PerPage, int(total))
}
