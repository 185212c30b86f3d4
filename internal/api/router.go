package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wisatabooks/ledger/internal/api/handler"
	"github.com/wisatabooks/ledger/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	journalHandler *handler.JournalHandler,
	ledgerHandler *handler.LedgerHandler,
	reportHandler *handler.ReportHandler,
	archiveHandler *handler.ArchiveHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Chart of accounts
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("", accountHandler.List)
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.GET("/:id/ledger", accountHandler.GetLedger)
			accounts.GET("/:id/archive", archiveHandler.GetByAccount)
			accounts.POST("/:id/recompute", accountHandler.Recompute)
		}

		// Journal entry posting
		journalEntries := v1.Group("/journal-entries")
		{
			journalEntries.POST("", journalHandler.Create)
			journalEntries.GET("/:id", journalHandler.GetByID)
			journalEntries.DELETE("/:id", journalHandler.Delete)
		}

		// Manual ledger corrections and bulk recompute
		v1.POST("/ledger/direct", ledgerHandler.CreateDirect)
		v1.POST("/recompute", ledgerHandler.RecomputeAll)

		// Financial statements
		reports := v1.Group("/reports")
		{
			reports.GET("/trial-balance", reportHandler.TrialBalance)
			reports.GET("/balance-sheet", reportHandler.BalanceSheet)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
