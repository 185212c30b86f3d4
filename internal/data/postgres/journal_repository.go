package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wisatabooks/ledger/internal/domain/journal"
	"github.com/wisatabooks/ledger/internal/platform/persistence"
)

// JournalRepository implements journal.Repository for PostgreSQL. Entry lines
// are stored as a jsonb column; the authoritative per-account effect lives in
// the general ledger rows written alongside the entry.
type JournalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewJournalRepository creates a PostgreSQL journal entry repository
func NewJournalRepository(logger *slog.Logger, db *persistence.PostgresDB) journal.Repository {
	return &JournalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *JournalRepository) WithTx(tx pgx.Tx) journal.Repository {
	return &JournalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a journal entry header with its lines
func (r *JournalRepository) Create(ctx context.Context, entry *journal.Entry) error {
	lines, err := json.Marshal(entry.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal entry lines: %w", err)
	}

	var idempotencyKey *string
	if entry.IdempotencyKey != "" {
		idempotencyKey = &entry.IdempotencyKey
	}

	query := `
		INSERT INTO journal_entries (id, entry_date, description, idempotency_key, lines, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.querier.Exec(ctx, query,
		entry.ID,
		entry.Date,
		entry.Description,
		idempotencyKey,
		lines,
		entry.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return journal.ErrDuplicateEntry{EntryID: entry.ID}
		}
		r.logger.Error("Failed to create journal entry", "id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	return nil
}

func scanEntry(row pgx.Row) (*journal.Entry, error) {
	var (
		entry          journal.Entry
		idempotencyKey *string
		lines          []byte
	)
	err := row.Scan(
		&entry.ID,
		&entry.Date,
		&entry.Description,
		&idempotencyKey,
		&lines,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if idempotencyKey != nil {
		entry.IdempotencyKey = *idempotencyKey
	}
	if err := json.Unmarshal(lines, &entry.Lines); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry lines: %w", err)
	}
	return &entry, nil
}

// GetByID retrieves a journal entry by its ID
func (r *JournalRepository) GetByID(ctx context.Context, id uuid.UUID) (*journal.Entry, error) {
	query := `
		SELECT id, entry_date, description, idempotency_key, lines, created_at
		FROM journal_entries
		WHERE id = $1
	`

	entry, err := scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, journal.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get journal entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	return entry, nil
}

// GetByIdempotencyKey retrieves the entry carrying the key, (nil, nil) when absent
func (r *JournalRepository) GetByIdempotencyKey(ctx context.Context, key string) (*journal.Entry, error) {
	query := `
		SELECT id, entry_date, description, idempotency_key, lines, created_at
		FROM journal_entries
		WHERE idempotency_key = $1
	`

	entry, err := scanEntry(r.querier.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get journal entry by idempotency key", "error", err)
		return nil, fmt.Errorf("failed to get journal entry by idempotency key: %w", err)
	}

	return entry, nil
}

// Delete removes a journal entry header
func (r *JournalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM journal_entries WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete journal entry", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return journal.ErrEntryNotFound{EntryID: id}
	}

	return nil
}
