package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wisatabooks/ledger/internal/api/service"
	"github.com/wisatabooks/ledger/internal/domain/account"
)

// ArchiveHandler serves the archived copy of an account's ledger rows
type ArchiveHandler struct {
	archiveService service.ArchiveService
	logger         *slog.Logger
}

// NewArchiveHandler creates a new archive handler
func NewArchiveHandler(logger *slog.Logger, archiveService service.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{
		archiveService: archiveService,
		logger:         logger,
	}
}

// GetByAccount retrieves paginated archived rows for an account, newest first.
// History lands here asynchronously through the outbox pipeline, so a row
// posted moments ago may not be visible yet.
func (h *ArchiveHandler) GetByAccount(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	rows, total, err := h.archiveService.GetArchivedRows(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get archived rows", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]LedgerRowResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, newLedgerRowResponse(row))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}
