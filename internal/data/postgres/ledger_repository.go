package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/wisatabooks/ledger/internal/domain/ledger"
	"github.com/wisatabooks/ledger/internal/platform/persistence"
)

const ledgerColumns = `id, account_id, entry_id, entry_date, description,
		       debit, credit, balance, manual_entry, created_at`

// LedgerRepository implements ledger.Repository for PostgreSQL. All ordered
// reads use (entry_date, created_at) so running balances stay consistent with
// the order they were computed under.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a PostgreSQL general ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanRow(row pgx.Row) (*ledger.Row, error) {
	var lr ledger.Row
	err := row.Scan(
		&lr.ID,
		&lr.AccountID,
		&lr.EntryID,
		&lr.Date,
		&lr.Description,
		&lr.Debit,
		&lr.Credit,
		&lr.Balance,
		&lr.ManualEntry,
		&lr.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

// Append inserts a new ledger row
func (r *LedgerRepository) Append(ctx context.Context, row *ledger.Row) error {
	query := `
		INSERT INTO general_ledger (id, account_id, entry_id, entry_date, description,
		                            debit, credit, balance, manual_entry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		row.ID,
		row.AccountID,
		row.EntryID,
		row.Date,
		row.Description,
		row.Debit,
		row.Credit,
		row.Balance,
		row.ManualEntry,
		row.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append ledger row", "account_id", row.AccountID.String(), "error", err)
		return fmt.Errorf("failed to append ledger row: %w", err)
	}

	return nil
}

// Latest returns the newest row for an account, (nil, nil) when the account
// has no rows yet
func (r *LedgerRepository) Latest(ctx context.Context, accountID uuid.UUID) (*ledger.Row, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM general_ledger
		WHERE account_id = $1
		ORDER BY entry_date DESC, created_at DESC
		LIMIT 1
	`

	row, err := scanRow(r.querier.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get latest ledger row", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get latest ledger row: %w", err)
	}

	return row, nil
}

// History returns every row for an account in posting order
func (r *LedgerRepository) History(ctx context.Context, accountID uuid.UUID) ([]*ledger.Row, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM general_ledger
		WHERE account_id = $1
		ORDER BY entry_date ASC, created_at ASC
	`
	return r.list(ctx, query, accountID)
}

// ByAccountID returns paginated rows for display, newest first
func (r *LedgerRepository) ByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Row, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM general_ledger
		WHERE account_id = $1
		ORDER BY entry_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, accountID, limit, offset)
}

// CountByAccountID returns the number of rows for an account
func (r *LedgerRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM general_ledger WHERE account_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger rows", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger rows: %w", err)
	}

	return count, nil
}

// ByEntryID returns the rows materialized from one journal entry
func (r *LedgerRepository) ByEntryID(ctx context.Context, entryID uuid.UUID) ([]*ledger.Row, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM general_ledger
		WHERE entry_id = $1
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, entryID)
}

// DeleteByEntryID removes the rows materialized from one journal entry and
// returns how many were deleted
func (r *LedgerRepository) DeleteByEntryID(ctx context.Context, entryID uuid.UUID) (int64, error) {
	query := `DELETE FROM general_ledger WHERE entry_id = $1`

	result, err := r.querier.Exec(ctx, query, entryID)
	if err != nil {
		r.logger.Error("Failed to delete ledger rows", "entry_id", entryID.String(), "error", err)
		return 0, fmt.Errorf("failed to delete ledger rows: %w", err)
	}

	return result.RowsAffected(), nil
}

// UpdateBalance rewrites a row's stored running balance
func (r *LedgerRepository) UpdateBalance(ctx context.Context, rowID uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE general_ledger SET balance = $1 WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, balance, rowID)
	if err != nil {
		r.logger.Error("Failed to update ledger row balance", "id", rowID.String(), "error", err)
		return fmt.Errorf("failed to update ledger row balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrRowNotFound{RowID: rowID}
	}

	return nil
}

// AccountIDs lists the distinct accounts having rows in the given window
func (r *LedgerRepository) AccountIDs(ctx context.Context, from, to *time.Time) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT account_id FROM general_ledger WHERE 1=1`
	var args []any
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND entry_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND entry_date <= $%d", len(args))
	}

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list ledger account ids", "error", err)
		return nil, fmt.Errorf("failed to list ledger account ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account ids: %w", err)
	}

	return ids, nil
}

func (r *LedgerRepository) list(ctx context.Context, query string, args ...any) ([]*ledger.Row, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query ledger rows", "error", err)
		return nil, fmt.Errorf("failed to query ledger rows: %w", err)
	}
	defer rows.Close()

	var result []*ledger.Row
	for rows.Next() {
		lr, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		result = append(result, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger rows: %w", err)
	}

	return result, nil
}
