package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bookstore-ledger/internal/api_gateway/handler"
	"github.com/bookstore-ledger/internal/api_gateway/middleware"
	"github.com/bookstore-ledger/internal/platform/metrics"
)

type handlers struct {
	account *handler.AccountHandler
	payment *handler.PaymentHandler
	book    *handler.BookHandler
	webhook *handler.WebhookHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, jwtSecret string, m *metrics.Metrics, h handlers) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	v1 := r.Group("/api/v1")

	// Signed by the gateway, not by a user token
	v1.POST("/webhooks/paystack", h.webhook.Paystack)

	authed := v1.Group("")
	authed.Use(middleware.Auth(jwtSecret, logger))
	{
		authed.GET("/accounts/me", h.account.Me)

		payments := authed.Group("/payments")
		{
			payments.POST("/initialize", h.payment.Initialize)
			payments.POST("/verify", h.payment.Verify)
			payments.POST("/transfer", h.payment.Transfer)
			payments.POST("/purchase", h.payment.Purchase)
			payments.GET("", h.payment.List)
			payments.GET("/:reference", h.payment.GetByReference)
		}

		books := authed.Group("/books")
		{
			books.POST("/borrow", h.book.Borrow)
			books.POST("/return", h.book.Return)
			books.POST("/buy", h.book.Buy)
			books.GET("/:id", h.book.GetByID)
		}
	}
}
