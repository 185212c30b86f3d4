package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wisatabooks/ledger/internal/domain/account"
	"github.com/wisatabooks/ledger/internal/domain/journal"
	"github.com/wisatabooks/ledger/internal/domain/ledger"
)

// DateFormat is the wire format for entry dates
const DateFormat = "2006-01-02"

// CreateAccountRequest represents a request to create a new account
type CreateAccountRequest struct {
	Code       string `json:"code" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Type       string `json:"type" binding:"required"`
	IsHeader   bool   `json:"is_header"`
	ParentCode string `json:"parent_code,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	IsHeader    bool            `json:"is_header"`
	ParentID    string          `json:"parent_id,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

func newAccountResponse(acc *account.Account) AccountResponse {
	resp := AccountResponse{
		ID:          acc.ID.String(),
		Code:        acc.Code,
		Name:        acc.Name,
		Type:        string(acc.Type),
		IsHeader:    acc.IsHeader,
		Balance:     acc.Balance,
		TotalDebit:  acc.TotalDebit,
		TotalCredit: acc.TotalCredit,
		CreatedAt:   acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   acc.UpdatedAt.Format(time.RFC3339),
	}
	if acc.ParentID != nil {
		resp.ParentID = acc.ParentID.String()
	}
	return resp
}

// JournalLineRequest is one debit or credit line in a journal entry request
type JournalLineRequest struct {
	AccountID string          `json:"account_id" binding:"required,uuid"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// CreateJournalEntryRequest represents a request to post a journal entry
type CreateJournalEntryRequest struct {
	Date           string               `json:"date" binding:"required"`
	Description    string               `json:"description"`
	IdempotencyKey string               `json:"idempotency_key,omitempty"`
	Lines          []JournalLineRequest `json:"lines" binding:"required"`
}

// JournalEntryResponse represents a posted journal entry in API responses
type JournalEntryResponse struct {
	ID             string                `json:"id"`
	Date           string                `json:"date"`
	Description    string                `json:"description"`
	IdempotencyKey string                `json:"idempotency_key,omitempty"`
	Lines          []JournalLineResponse `json:"lines"`
	Rows           []LedgerRowResponse   `json:"rows,omitempty"`
	Replayed       bool                  `json:"replayed,omitempty"`
	CreatedAt      string                `json:"created_at"`
}

// JournalLineResponse is one line of a posted entry
type JournalLineResponse struct {
	AccountID string          `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

func newJournalEntryResponse(entry *journal.Entry, rows []*ledger.Row, replayed bool) JournalEntryResponse {
	resp := JournalEntryResponse{
		ID:             entry.ID.String(),
		Date:           entry.Date.Format(DateFormat),
		Description:    entry.Description,
		IdempotencyKey: entry.IdempotencyKey,
		Replayed:       replayed,
		CreatedAt:      entry.CreatedAt.Format(time.RFC3339),
	}
	for _, l := range entry.Lines {
		resp.Lines = append(resp.Lines, JournalLineResponse{
			AccountID: l.AccountID.String(),
			Debit:     l.Debit,
			Credit:    l.Credit,
		})
	}
	for _, r := range rows {
		resp.Rows = append(resp.Rows, newLedgerRowResponse(r))
	}
	return resp
}

// DirectEntryRequest represents a manual single-row ledger entry
type DirectEntryRequest struct {
	AccountID   string          `json:"account_id" binding:"required,uuid"`
	Date        string          `json:"date" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// LedgerRowResponse represents a general ledger row in API responses
type LedgerRowResponse struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	EntryID     string          `json:"entry_id,omitempty"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
	ManualEntry bool            `json:"manual_entry"`
	CreatedAt   string          `json:"created_at"`
}

func newLedgerRowResponse(row *ledger.Row) LedgerRowResponse {
	resp := LedgerRowResponse{
		ID:          row.ID.String(),
		AccountID:   row.AccountID.String(),
		Date:        row.Date.Format(DateFormat),
		Description: row.Description,
		Debit:       row.Debit,
		Credit:      row.Credit,
		Balance:     row.Balance,
		ManualEntry: row.ManualEntry,
		CreatedAt:   row.CreatedAt.Format(time.RFC3339),
	}
	if row.EntryID != nil {
		resp.EntryID = row.EntryID.String()
	}
	return resp
}

// RecomputeRequest bounds a bulk recompute to an optional date window
type RecomputeRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// RecomputeResponse reports how many accounts were recomputed
type RecomputeResponse struct {
	AccountsRecomputed int `json:"accounts_recomputed"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}
