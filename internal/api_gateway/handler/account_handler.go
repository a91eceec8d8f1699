package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/bookstore-ledger/internal/api_gateway/middleware"
	"github.com/bookstore-ledger/internal/api_gateway/service"
)

// AccountHandler handles HTTP requests for wallet accounts
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Me returns the caller's wallet and balance
func (h *AccountHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c)
		return
	}

	acc, err := h.accountService.GetAccount(c.Request.Context(), identity.UserID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}
