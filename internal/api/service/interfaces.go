package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wisatabooks/ledger/internal/domain/account"
	"github.com/wisatabooks/ledger/internal/domain/journal"
	"github.com/wisatabooks/ledger/internal/domain/ledger"
	"github.com/wisatabooks/ledger/internal/posting"
)

// AccountService defines the interface for chart-of-accounts operations
type AccountService interface {
	// CreateAccount creates a new account.
	// Returns account.ErrDuplicateCode if the code is already taken.
	CreateAccount(ctx context.Context, code, name string, accType account.Type, isHeader bool, parentCode string) (*account.Account, error)

	// GetAccountByID retrieves an account by its ID.
	// Returns account.ErrAccountNotFound if the account doesn't exist.
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error)

	// ListAccounts returns the full chart of accounts ordered by code
	ListAccounts(ctx context.Context) ([]*account.Account, error)

	// GetLedger retrieves paginated ledger rows for an account, newest first.
	// Returns rows, total row count, and any error.
	GetLedger(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Row, int64, error)
}

// PostingService defines the interface for posting operations. Implemented by
// the posting engine.
type PostingService interface {
	Validate(ctx context.Context, entry *journal.Entry) error
	Post(ctx context.Context, entry *journal.Entry) (*posting.Result, error)
	PostDirect(ctx context.Context, accountID uuid.UUID, date time.Time, description string, debit, credit decimal.Decimal) (*ledger.Row, error)
	DeleteEntry(ctx context.Context, entryID uuid.UUID) error
	Recompute(ctx context.Context, accountID uuid.UUID) (*account.Account, error)
	RecomputeAll(ctx context.Context, from, to *time.Time) (int, error)
}

// EntryReader retrieves posted journal entries
type EntryReader interface {
	// GetEntryByID returns an entry together with the ledger rows it produced.
	// Returns journal.ErrEntryNotFound if the entry doesn't exist.
	GetEntryByID(ctx context.Context, id uuid.UUID) (*journal.Entry, []*ledger.Row, error)
}

// ArchiveService reads the MongoDB copy of posted rows, so audit queries over
// old history never touch the transactional store
type ArchiveService interface {
	// GetArchivedRows retrieves paginated archived rows for an account, newest
	// first. Returns rows, total archived row count, and any error.
	GetArchivedRows(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Row, int64, error)
}

// ReportService builds financial statements from the chart of accounts
type ReportService interface {
	TrialBalance(ctx context.Context) (*TrialBalance, error)
	BalanceSheet(ctx context.Context) (*BalanceSheet, error)
}
