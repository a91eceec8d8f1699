package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bookstore-ledger/internal/api_gateway/middleware"
	"github.com/bookstore-ledger/internal/api_gateway/service"
	"github.com/bookstore-ledger/internal/domain/shared"
)

// BookHandler handles HTTP requests for catalog and inventory operations
type BookHandler struct {
	inventoryService service.InventoryService
	logger           *slog.Logger
}

// NewBookHandler creates a new book handler
func NewBookHandler(logger *slog.Logger, inventoryService service.InventoryService) *BookHandler {
	return &BookHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// GetByID returns a book with the availability of each format
func (h *BookHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid book ID")
		return
	}

	b, err := h.inventoryService.GetBook(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookToResponse(b))
}

// Borrow loans a physical copy to the caller
func (h *BookHandler) Borrow(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c)
		return
	}

	var req BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		RespondBadRequest(c, "Invalid book ID")
		return
	}

	record, err := h.inventoryService.Borrow(c.Request.Context(), bookID, identity.UserID, req.DueDate)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, BorrowResponse{
		BorrowRecordID: record.ID.String(),
		DueDate:        record.DueDate.Format(time.RFC3339),
	})
}

// Return closes the caller's loan and restocks the copy
func (h *BookHandler) Return(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c)
		return
	}

	var req ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		RespondBadRequest(c, "Invalid book ID")
		return
	}

	if err := h.inventoryService.Return(c.Request.Context(), bookID, identity.UserID); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, gin.H{"message": "book returned"})
}

// Buy records a direct purchase
func (h *BookHandler) Buy(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c)
		return
	}

	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		RespondBadRequest(c, "Invalid book ID")
		return
	}

	record, err := h.inventoryService.Buy(c.Request.Context(), bookID, identity.UserID, req.Format, req.Quantity)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, BuyResponse{
		PurchaseRecordID: record.ID.String(),
		Format:           string(record.Format),
		Quantity:         record.Quantity,
		Amount:           shared.FormatAmount(record.Amount),
	})
}
