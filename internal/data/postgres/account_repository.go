// Package postgres provides PostgreSQL implementations of the domain
// repositories. The chart of accounts, journal entries, general ledger and
// outbox all live in the same database so a posting commits in one
// transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wisatabooks/ledger/internal/domain/account"
	"github.com/wisatabooks/ledger/internal/platform/persistence"
)

const accountColumns = `id, account_code, account_name, account_type, is_header, parent_id,
		       balance_total, total_debit, total_credit, version, created_at, updated_at`

// AccountRepository implements account.Repository for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a PostgreSQL chart-of-accounts repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.Code,
		&acc.Name,
		&acc.Type,
		&acc.IsHeader,
		&acc.ParentID,
		&acc.Balance,
		&acc.TotalDebit,
		&acc.TotalCredit,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// Create stores a new account. Duplicate codes surface as ErrDuplicateCode.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO chart_of_accounts (id, account_code, account_name, account_type, is_header, parent_id,
		                               balance_total, total_debit, total_credit, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Code,
		acc.Name,
		acc.Type,
		acc.IsHeader,
		acc.ParentID,
		acc.Balance,
		acc.TotalDebit,
		acc.TotalCredit,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "account_code") {
			return account.ErrDuplicateCode{Code: acc.Code}
		}
		r.logger.Error("Failed to create account", "code", acc.Code, "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM chart_of_accounts
		WHERE id = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// GetByCode retrieves an account by its code, (nil, nil) when absent
func (r *AccountRepository) GetByCode(ctx context.Context, code string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM chart_of_accounts
		WHERE account_code = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by code", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get account by code: %w", err)
	}

	return acc, nil
}

// List returns all accounts ordered by code
func (r *AccountRepository) List(ctx context.Context) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM chart_of_accounts
		ORDER BY account_code
	`
	return r.list(ctx, query)
}

// ListPostable returns non-header accounts ordered by code
func (r *AccountRepository) ListPostable(ctx context.Context) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM chart_of_accounts
		WHERE is_header = false
		ORDER BY account_code
	`
	return r.list(ctx, query)
}

func (r *AccountRepository) list(ctx context.Context, query string) ([]*account.Account, error) {
	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list accounts", "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// UpdateTotals persists derived totals under optimistic locking. The caller
// has already incremented Version; the previous version is the precondition.
func (r *AccountRepository) UpdateTotals(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE chart_of_accounts
		SET balance_total = $1, total_debit = $2, total_credit = $3, version = $4, updated_at = $5
		WHERE id = $6 AND version = $7
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Balance,
		acc.TotalDebit,
		acc.TotalCredit,
		acc.Version,
		acc.UpdatedAt,
		acc.ID,
		acc.Version-1,
	)
	if err != nil {
		r.logger.Error("Failed to update account totals", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account totals: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the account and returns its
// current state. Must run within a transaction.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM chart_of_accounts
		WHERE id = $1
		FOR UPDATE
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}
