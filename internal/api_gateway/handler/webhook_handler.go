package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bookstore-ledger/internal/api_gateway/middleware"
	"github.com/bookstore-ledger/internal/api_gateway/service"
	"github.com/bookstore-ledger/internal/platform/gateway/paystack"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives gateway notifications
type WebhookHandler struct {
	notificationService service.NotificationService
	logger              *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, notificationService service.NotificationService) *WebhookHandler {
	return &WebhookHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// Paystack verifies the signature over the raw body and queues the event.
// Settlement happens asynchronously in the processor.
func (h *WebhookHandler) Paystack(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		RespondBadRequest(c, "unreadable request body")
		return
	}

	event, err := h.notificationService.AcceptWebhook(
		c.Request.Context(),
		body,
		c.GetHeader(paystack.SignatureHeader),
		middleware.GetCorrelationID(c),
	)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondWithData(c, http.StatusOK, gin.H{
		"event":     event.Event,
		"reference": event.Reference,
	})
}
