package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wisatabooks/ledger/internal/domain/account"
	"github.com/wisatabooks/ledger/internal/domain/journal"
	"github.com/wisatabooks/ledger/internal/domain/ledger"
)

// AccountServiceImpl implements the AccountService and EntryReader interfaces
type AccountServiceImpl struct {
	accountRepo account.Repository
	entryRepo   journal.Repository
	ledgerRepo  ledger.Repository
}

// NewAccountService creates a new account service
func NewAccountService(accountRepo account.Repository, entryRepo journal.Repository, ledgerRepo ledger.Repository) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		ledgerRepo:  ledgerRepo,
	}
}

// CreateAccount creates a new account, resolving the optional parent by code
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, code, name string, accType account.Type, isHeader bool, parentCode string) (*account.Account, error) {
	existing, err := s.accountRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, account.ErrDuplicateCode{Code: code}
	}

	var parentID *uuid.UUID
	if parentCode != "" {
		parent, err := s.accountRepo.GetByCode(ctx, parentCode)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("parent account %q not found", parentCode)
		}
		parentID = &parent.ID
	}

	acc, err := account.New(code, name, accType, isHeader, parentID)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	return acc, nil
}

// GetAccountByID retrieves an account by its ID
func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// ListAccounts returns the full chart of accounts ordered by code
func (s *AccountServiceImpl) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	return s.accountRepo.List(ctx)
}

// GetLedger retrieves paginated ledger rows for an account, newest first
func (s *AccountServiceImpl) GetLedger(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Row, int64, error) {
	// The account must exist even when it has no rows yet
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := s.ledgerRepo.ByAccountID(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.ledgerRepo.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return rows, count, nil
}

// GetEntryByID returns an entry together with the ledger rows it produced
func (s *AccountServiceImpl) GetEntryByID(ctx context.Context, id uuid.UUID) (*journal.Entry, []*ledger.Row, error) {
	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.ledgerRepo.ByEntryID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return entry, rows, nil
}
