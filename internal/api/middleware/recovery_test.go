package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("RecoversFromPanic", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/panic", func(c *gin.Context) {
			panic("something went wrong")
		})

		req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), "INTERNAL_SERVER_ERROR")
		assert.NotContains(t, rr.Body.String(), "something went wrong")
	})

	t.Run("PassesThroughNormalRequests", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/ok", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req, _ := http.NewRequest(http.MethodGet, "/ok", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ok", rr.Body.String())
	})
}
