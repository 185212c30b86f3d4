package journal

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages journal entry persistence. Entry lines are materialized
// as ledger rows by the posting engine; the repository stores the entry header
// for idempotency and correction lookups.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// GetByIdempotencyKey returns (nil, nil) when no entry carries the key.
	GetByIdempotencyKey(ctx context.Context, key string) (*Entry, error)

	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing journal entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "journal entry not found: " + e.EntryID.String()
}

// Is matches any ErrEntryNotFound when the target carries a nil ID
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	return t.EntryID == uuid.Nil || e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates entry id uniqueness violation
type ErrDuplicateEntry struct {
	EntryID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate journal entry: " + e.EntryID.String()
}
