package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(buf *bytes.Buffer, status int) *gin.Engine {
		logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		router := gin.New()
		router.Use(CorrelationID(), Logger(logger))
		router.GET("/books/:id", func(c *gin.Context) {
			c.Status(status)
		})
		return router
	}

	t.Run("success logs at info", func(t *testing.T) {
		var buf bytes.Buffer
		req := httptest.NewRequest(http.MethodGet, "/books/7?expand=formats", nil)
		req.Header.Set(CorrelationIDHeader, "corr-log")
		req.Header.Set("User-Agent", "test-agent")
		newRouter(&buf, http.StatusOK).ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		assert.Contains(t, out, `"level":"INFO"`)
		assert.Contains(t, out, `"msg":"HTTP request"`)
		assert.Contains(t, out, `"path":"/books/7?expand=formats"`)
		assert.Contains(t, out, `"status":200`)
		assert.Contains(t, out, `"user_agent":"test-agent"`)
		assert.Contains(t, out, `"correlation_id":"corr-log"`)
	})

	t.Run("client error logs at warn", func(t *testing.T) {
		var buf bytes.Buffer
		newRouter(&buf, http.StatusNotFound).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books/7", nil))
		assert.Contains(t, buf.String(), `"level":"WARN"`)
	})

	t.Run("server error logs at error", func(t *testing.T) {
		var buf bytes.Buffer
		newRouter(&buf, http.StatusBadGateway).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books/7", nil))
		assert.Contains(t, buf.String(), `"level":"ERROR"`)
	})
}
