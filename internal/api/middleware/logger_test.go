package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func loggedRouter(buf *bytes.Buffer) *gin.Engine {
	testLogger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	router := gin.New()
	router.Use(CorrelationID())
	router.Use(Logger(testLogger))
	return router
}

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("logs request details with correlation id", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := loggedRouter(&logBuffer)
		router.GET("/accounts", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		req, _ := http.NewRequest(http.MethodGet, "/accounts?page=2", nil)
		testCorrelationID := uuid.New().String()
		req.Header.Set(CorrelationIDHeader, testCorrelationID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"level":"INFO"`)
		assert.Contains(t, logOutput, `"msg":"Request completed"`)
		assert.Contains(t, logOutput, `"method":"GET"`)
		assert.Contains(t, logOutput, `"path":"/accounts"`)
		assert.Contains(t, logOutput, `"query":"page=2"`)
		assert.Contains(t, logOutput, `"status":200`)
		assert.Contains(t, logOutput, `"duration_ms":`)
		assert.Contains(t, logOutput, `"client_ip":`)
		assert.Contains(t, logOutput, `"correlation_id":"`+testCorrelationID+`"`)
	})

	t.Run("generates a correlation id when none is provided", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := loggedRouter(&logBuffer)
		router.POST("/journal-entries", func(c *gin.Context) {
			c.String(http.StatusCreated, "Created")
		})

		req, _ := http.NewRequest(http.MethodPost, "/journal-entries", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"status":201`)
		assert.Contains(t, logOutput, `"correlation_id":`)
	})

	t.Run("client errors log at warn and server errors at error", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := loggedRouter(&logBuffer)
		router.GET("/missing", func(c *gin.Context) {
			c.String(http.StatusNotFound, "not found")
		})
		router.GET("/broken", func(c *gin.Context) {
			c.String(http.StatusInternalServerError, "boom")
		})

		rr := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/missing", nil)
		router.ServeHTTP(rr, req)
		assert.Contains(t, logBuffer.String(), `"level":"WARN"`)

		logBuffer.Reset()
		rr = httptest.NewRecorder()
		req, _ = http.NewRequest(http.MethodGet, "/broken", nil)
		router.ServeHTTP(rr, req)
		assert.Contains(t, logBuffer.String(), `"level":"ERROR"`)
	})
}
