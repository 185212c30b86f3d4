package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wisatabooks/ledger/internal/api/service"
	"github.com/wisatabooks/ledger/internal/domain/journal"
	"github.com/wisatabooks/ledger/internal/posting"
)

// LedgerHandler handles HTTP requests for direct ledger entries and bulk
// recompute
type LedgerHandler struct {
	postingService service.PostingService
	logger         *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(logger *slog.Logger, postingService service.PostingService) *LedgerHandler {
	return &LedgerHandler{
		postingService: postingService,
		logger:         logger,
	}
}

// CreateDirect posts a manual single-row ledger entry outside the journal
func (h *LedgerHandler) CreateDirect(c *gin.Context) {
	var req DirectEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	date, err := time.Parse(DateFormat, req.Date)
	if err != nil {
		RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	row, err := h.postingService.PostDirect(c.Request.Context(), accountID, date, req.Description, req.Debit, req.Credit)
	if err != nil {
		var validationErr journal.ValidationError
		if errors.As(err, &validationErr) {
			RespondUnprocessable(c, string(validationErr.Code), validationErr.Error(), validationErr.Line)
			return
		}
		var conflictErr posting.ErrAccountUpdateConflict
		if errors.As(err, &conflictErr) {
			RespondConflict(c, "ACCOUNT_UPDATE_CONFLICT", conflictErr.Error())
			return
		}
		h.logger.Error("Failed to post direct ledger entry", "account_id", req.AccountID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, newLedgerRowResponse(row))
}

// RecomputeAll replays every account with rows in the optional date window
func (h *LedgerHandler) RecomputeAll(c *gin.Context) {
	// An empty body means an unbounded recompute
	var req RecomputeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	var from, to *time.Time
	if req.From != "" {
		t, err := time.Parse(DateFormat, req.From)
		if err != nil {
			RespondBadRequest(c, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		from = &t
	}
	if req.To != "" {
		t, err := time.Parse(DateFormat, req.To)
		if err != nil {
			RespondBadRequest(c, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		to = &t
	}

	count, err := h.postingService.RecomputeAll(c.Request.Context(), from, to)
	if err != nil {
		h.logger.Error("Failed to recompute accounts", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, RecomputeResponse{AccountsRecomputed: count})
}
