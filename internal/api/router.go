package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clearwave-ledger/internal/api/handler"
	"github.com/clearwave-ledger/internal/api/middleware"
	"github.com/clearwave-ledger/internal/config"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	cfg *config.Config,
	accountHandler *handler.AccountHandler,
	journalHandler *handler.JournalHandler,
	liquidityHandler *handler.LiquidityHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	v1.Use(middleware.BearerAuth(cfg.Auth.StaticTokens))
	{
		// Account operations
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("", accountHandler.GetByExternalID)
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.GET("/:id/journal-entries", journalHandler.GetByAccountID)
		}

		// Journal entry operations
		v1.POST("/journal-entries", journalHandler.Create)

		// Reservation protocol batches from the clearing hub
		v1.POST("/transfers/liquidity-batch", liquidityHandler.ProcessBatch)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
