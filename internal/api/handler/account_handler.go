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

// AccountHandler handles HTTP requests for chart-of-accounts operations
type AccountHandler struct {
	accountService service.AccountService
	postingService service.PostingService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService, postingService service.PostingService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		postingService: postingService,
		logger:         logger,
	}
}

// Create adds an account to the chart of accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accType, err := account.ParseType(req.Type)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), req.Code, req.Name, accType, req.IsHeader, req.ParentCode)
	if err != nil {
		if errors.Is(err, account.ErrDuplicateCode{}) {
			RespondConflict(c, "DUPLICATE_CODE", err.Error())
			return
		}
		h.logger.Error("Failed to create account", "code", req.Code, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, newAccountResponse(acc))
}

// List returns the full chart of accounts ordered by code
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accountService.ListAccounts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list accounts", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		responses = append(responses, newAccountResponse(acc))
	}

	RespondOK(c, responses)
}

// GetByID retrieves an account by its ID, 404 when absent
func (h *AccountHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get account", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, newAccountResponse(acc))
}

// GetLedger retrieves paginated ledger rows for an account, newest first
func (h *AccountHandler) GetLedger(c *gin.Context) {
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

	rows, total, err := h.accountService.GetLedger(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get account ledger", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]LedgerRowResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, newLedgerRowResponse(row))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// Recompute replays an account's full row history and returns the account
// with its authoritative totals
func (h *AccountHandler) Recompute(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.postingService.Recompute(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to recompute account", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, newAccountResponse(acc))
}
