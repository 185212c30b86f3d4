// Package api wires the HTTP surface of the ledger service: handlers,
// middleware and server lifecycle.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wisatabooks/ledger/internal/api/handler"
	"github.com/wisatabooks/ledger/internal/api/service"
	"github.com/wisatabooks/ledger/internal/config"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// Services groups the dependencies the HTTP surface needs
type Services struct {
	Accounts AccountServices
	Posting  service.PostingService
	Reports  service.ReportService
	Archive  service.ArchiveService
}

// AccountServices pairs the account operations with entry reads, both served
// by the account service implementation
type AccountServices interface {
	service.AccountService
	service.EntryReader
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, services Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	accountHandler := handler.NewAccountHandler(log, services.Accounts, services.Posting)
	journalHandler := handler.NewJournalHandler(log, services.Posting, services.Accounts)
	ledgerHandler := handler.NewLedgerHandler(log, services.Posting)
	reportHandler := handler.NewReportHandler(log, services.Reports)
	archiveHandler := handler.NewArchiveHandler(log, services.Archive)

	setupRouter(log, httpRouter, accountHandler, journalHandler, ledgerHandler, reportHandler, archiveHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
