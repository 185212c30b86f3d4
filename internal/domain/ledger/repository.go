package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository manages general ledger rows. The running balance on each row is
// only meaningful under the (date, created_at) total order per account, so
// every read that feeds a balance computation uses that ordering.
type Repository interface {
	Append(ctx context.Context, row *Row) error

	// Latest returns the most recent row for an account by (date desc,
	// created_at desc), or (nil, nil) when the account has no rows.
	Latest(ctx context.Context, accountID uuid.UUID) (*Row, error)

	// History returns every row for an account in (date asc, created_at asc)
	// order, for replay.
	History(ctx context.Context, accountID uuid.UUID) ([]*Row, error)

	// ByAccountID returns paginated rows, newest first, for display.
	ByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Row, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)

	ByEntryID(ctx context.Context, entryID uuid.UUID) ([]*Row, error)
	DeleteByEntryID(ctx context.Context, entryID uuid.UUID) (int64, error)

	// UpdateBalance rewrites a row's stored running balance during recompute.
	UpdateBalance(ctx context.Context, rowID uuid.UUID, balance decimal.Decimal) error

	// AccountIDs lists the distinct accounts having rows in the given window;
	// nil bounds leave that side open.
	AccountIDs(ctx context.Context, from, to *time.Time) ([]uuid.UUID, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrRowNotFound indicates missing ledger row
type ErrRowNotFound struct {
	RowID uuid.UUID
}

func (e ErrRowNotFound) Error() string {
	return "ledger row not found: " + e.RowID.String()
}

// Is matches any ErrRowNotFound when the target carries a nil ID
func (e ErrRowNotFound) Is(target error) bool {
	t, ok := target.(ErrRowNotFound)
	if !ok {
		return false
	}
	return t.RowID == uuid.Nil || e.RowID == t.RowID
}
