package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines chart-of-accounts persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByCode retrieves an account by its code, returning (nil, nil) when
	// no account carries the code.
	GetByCode(ctx context.Context, code string) (*Account, error)

	// List returns all accounts ordered by code.
	List(ctx context.Context) ([]*Account, error)

	// ListPostable returns non-header accounts ordered by code.
	ListPostable(ctx context.Context) ([]*Account, error)

	// UpdateTotals persists derived totals using optimistic locking; the
	// account's Version must already be incremented by the caller.
	UpdateTotals(ctx context.Context, account *Account) error

	// LockForUpdate acquires a pessimistic lock for posting
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

// Is matches any ErrConcurrentModification when the target carries a nil ID
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries a nil ID
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}

// ErrDuplicateCode indicates account code uniqueness violation
type ErrDuplicateCode struct {
	Code string
}

func (e ErrDuplicateCode) Error() string {
	return "account with code already exists: " + e.Code
}

// Is matches any ErrDuplicateCode when the target carries an empty code
func (e ErrDuplicateCode) Is(target error) bool {
	t, ok := target.(ErrDuplicateCode)
	if !ok {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}
