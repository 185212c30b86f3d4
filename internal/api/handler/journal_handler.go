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

// JournalHandler handles HTTP requests for journal entry operations
type JournalHandler struct {
	postingService service.PostingService
	entryReader    service.EntryReader
	logger         *slog.Logger
}

// NewJournalHandler creates a new journal entry handler
func NewJournalHandler(logger *slog.Logger, postingService service.PostingService, entryReader service.EntryReader) *JournalHandler {
	return &JournalHandler{
		postingService: postingService,
		entryReader:    entryReader,
		logger:         logger,
	}
}

// Create validates and posts a journal entry. Replays of an idempotency key
// return the previously posted entry with a 200 instead of a 201.
func (h *JournalHandler) Create(c *gin.Context) {
	var req CreateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	date, err := time.Parse(DateFormat, req.Date)
	if err != nil {
		RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	lines := make([]journal.Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		accountID, err := uuid.Parse(l.AccountID)
		if err != nil {
			RespondBadRequest(c, "Invalid account ID: "+l.AccountID)
			return
		}
		lines = append(lines, journal.Line{AccountID: accountID, Debit: l.Debit, Credit: l.Credit})
	}

	entry := journal.NewEntry(date, req.Description, req.IdempotencyKey, lines)

	result, err := h.postingService.Post(c.Request.Context(), entry)
	if err != nil {
		h.respondPostingError(c, err)
		return
	}

	posted, rows, err := h.entryReader.GetEntryByID(c.Request.Context(), result.EntryID)
	if err != nil {
		h.logger.Error("Failed to load posted entry", "entry_id", result.EntryID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	response := newJournalEntryResponse(posted, rows, result.Replayed)
	if result.Replayed {
		RespondOK(c, response)
		return
	}
	RespondCreated(c, response)
}

// GetByID retrieves a posted entry with its ledger rows, 404 when absent
func (h *JournalHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid journal entry ID")
		return
	}

	entry, rows, err := h.entryReader.GetEntryByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, journal.ErrEntryNotFound{}) {
			RespondNotFound(c, "Journal entry not found")
			return
		}
		h.logger.Error("Failed to get journal entry", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, newJournalEntryResponse(entry, rows, false))
}

// Delete removes an entry's ledger rows and recomputes every affected account
func (h *JournalHandler) Delete(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid journal entry ID")
		return
	}

	if err := h.postingService.DeleteEntry(c.Request.Context(), id); err != nil {
		if errors.Is(err, journal.ErrEntryNotFound{}) {
			RespondNotFound(c, "Journal entry not found")
			return
		}
		h.logger.Error("Failed to delete journal entry", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// respondPostingError maps engine errors onto HTTP statuses: validation
// failures to 422 with the taxonomy code, retry exhaustion to 409.
func (h *JournalHandler) respondPostingError(c *gin.Context, err error) {
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

	h.logger.Error("Failed to post journal entry", "error", err)
	RespondInternalError(c)
}
