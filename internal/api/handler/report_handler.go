package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/wisatabooks/ledger/internal/api/service"
)

// ReportHandler handles HTTP requests for financial statements
type ReportHandler struct {
	reportService service.ReportService
	logger        *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(logger *slog.Logger, reportService service.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// TrialBalance lists every postable account's accumulated debits, credits and
// balance with grand totals
func (h *ReportHandler) TrialBalance(c *gin.Context) {
	tb, err := h.reportService.TrialBalance(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build trial balance", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, tb)
}

// BalanceSheet groups postable accounts into assets, liabilities and equity
func (h *ReportHandler) BalanceSheet(c *gin.Context) {
	bs, err := h.reportService.BalanceSheet(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build balance sheet", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, bs)
}
