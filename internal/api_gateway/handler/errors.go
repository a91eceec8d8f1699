package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bookstore-ledger/internal/api_gateway/middleware"
	"github.com/bookstore-ledger/internal/domain/shared"
)

var kindStatus = map[shared.ErrorKind]int{
	shared.KindInvalidInput:            http.StatusBadRequest,
	shared.KindUnauthorized:            http.StatusUnauthorized,
	shared.KindForbidden:               http.StatusForbidden,
	shared.KindNotFound:                http.StatusNotFound,
	shared.KindUnavailable:             http.StatusConflict,
	shared.KindDuplicate:               http.StatusConflict,
	shared.KindGatewayError:            http.StatusBadGateway,
	shared.KindVerificationFailed:      http.StatusUnprocessableEntity,
	shared.KindEffectApplicationFailed: http.StatusServiceUnavailable,
}

// StatusForKind maps an error kind to its HTTP status; unknown kinds are 500
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondError writes err in the API envelope and logs it with its reference.
// Internal errors never expose their message.
func RespondError(c *gin.Context, logger *slog.Logger, err error) {
	kind := shared.KindOf(err)
	status := StatusForKind(kind)

	var reference string
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		reference = domainErr.Reference
	}

	attrs := []any{
		"path", c.Request.URL.Path,
		"kind", string(kind),
		"reference", reference,
		"correlation_id", middleware.GetCorrelationID(c),
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", attrs...)
	} else {
		logger.Warn("Request rejected", attrs...)
	}

	message := shared.MessageOf(err)
	if kind == shared.KindInternal {
		message = "an internal error occurred"
	}
	RespondWithError(c, status, kind, message, reference)
}
