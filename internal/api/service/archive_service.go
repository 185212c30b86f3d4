package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/wisatabooks/ledger/internal/domain/account"
	"github.com/wisatabooks/ledger/internal/domain/ledger"
)

// ArchiveReader is the slice of the archive store the service reads from.
// Implemented by the MongoDB archive repository.
type ArchiveReader interface {
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Row, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// ArchiveServiceImpl implements the ArchiveService interface
type ArchiveServiceImpl struct {
	archive     ArchiveReader
	accountRepo account.Repository
}

// NewArchiveService creates a new archive service
func NewArchiveService(archive ArchiveReader, accountRepo account.Repository) *ArchiveServiceImpl {
	return &ArchiveServiceImpl{
		archive:     archive,
		accountRepo: accountRepo,
	}
}

// GetArchivedRows retrieves paginated archived rows for an account, newest first
func (s *ArchiveServiceImpl) GetArchivedRows(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Row, int64, error) {
	// The account must exist even when nothing reached the archive yet
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := s.archive.GetByAccountID(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.archive.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return rows, count, nil
}
