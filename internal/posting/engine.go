// Package posting implements the ledger posting engine: it validates journal
// entries against the chart of accounts, computes running balances under each
// account type's normal-balance sign convention, and commits ledger rows,
// account totals and the committed-rows outbox message in one transaction.
package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/wisatabooks/ledger/internal/domain/account"
	"github.com/wisatabooks/ledger/internal/domain/journal"
	"github.com/wisatabooks/ledger/internal/domain/ledger"
	"github.com/wisatabooks/ledger/internal/domain/outbox"
	"github.com/wisatabooks/ledger/internal/platform/persistence"
)

const defaultMaxAttempts = 3

// Result reports what a successful posting committed
type Result struct {
	EntryID    uuid.UUID   `json:"entry_id"`
	RowIDs     []uuid.UUID `json:"row_ids"`
	AccountIDs []uuid.UUID `json:"account_ids"`
	Replayed   bool        `json:"replayed"` // True when an idempotency key matched an earlier posting
}

// Config bounds the engine's transactional work
type Config struct {
	Timeout          time.Duration
	RecomputeTimeout time.Duration
	MaxAttempts      int
}

// Engine is the ledger posting engine. It is safe for concurrent use; the
// per-account FOR UPDATE lock plus the version check on the totals update
// serialize concurrent postings against the same account.
type Engine struct {
	db          persistence.TxRunner
	accounts    account.Repository
	entries     journal.Repository
	rows        ledger.Repository
	outbox      outbox.Repository
	logger      *slog.Logger
	timeout     time.Duration
	recomputeTO time.Duration
	maxAttempts int
}

func NewEngine(
	db persistence.TxRunner,
	accounts account.Repository,
	entries journal.Repository,
	rows ledger.Repository,
	outboxRepo outbox.Repository,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Engine{
		db:          db,
		accounts:    accounts,
		entries:     entries,
		rows:        rows,
		outbox:      outboxRepo,
		logger:      logger,
		timeout:     cfg.Timeout,
		recomputeTO: cfg.RecomputeTimeout,
		maxAttempts: maxAttempts,
	}
}

// Validate checks a journal entry against the structural invariants and the
// chart of accounts without performing any writes. A nil return means the
// entry is postable.
func (e *Engine) Validate(ctx context.Context, entry *journal.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	for i, line := range entry.Lines {
		acc, err := e.accounts.GetByID(ctx, line.AccountID)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				return journal.ValidationError{
					Code:      journal.CodeInvalidAccount,
					Line:      i + 1,
					AccountID: line.AccountID,
					Detail:    "account does not exist",
				}
			}
			return fmt.Errorf("failed to look up account %s: %w", line.AccountID, err)
		}
		if !acc.Postable() {
			return journal.ValidationError{
				Code:      journal.CodeInvalidAccount,
				Line:      i + 1,
				AccountID: line.AccountID,
				Detail:    fmt.Sprintf("account %s (%s) is a header account", acc.Code, acc.Name),
			}
		}
	}

	return nil
}

// Post validates the entry and commits its ledger rows, account totals,
// journal header and outbox message atomically. Concurrent postings against
// overlapping accounts are retried a bounded number of times before
// surfacing ErrAccountUpdateConflict. When the entry carries an idempotency
// key already seen, the earlier result is replayed without new writes.
func (e *Engine) Post(ctx context.Context, entry *journal.Entry) (*Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if err := e.Validate(ctx, entry); err != nil {
		return nil, err
	}

	if entry.IdempotencyKey != "" {
		replay, err := e.replayByKey(ctx, entry.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if replay != nil {
			return replay, nil
		}
	}

	var result *Result
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		result, lastErr = e.postOnce(ctx, entry)
		if lastErr == nil {
			return result, nil
		}
		var dup journal.ErrDuplicateEntry
		if entry.IdempotencyKey != "" && errors.As(lastErr, &dup) {
			// A concurrent posting with the same fresh key won the insert
			// race; replay the winner's result instead of surfacing the
			// unique violation.
			replay, err := e.replayByKey(ctx, entry.IdempotencyKey)
			if err != nil {
				return nil, err
			}
			if replay != nil {
				return replay, nil
			}
			return nil, lastErr
		}
		if !errors.Is(lastErr, account.ErrConcurrentModification{}) {
			return nil, lastErr
		}
		e.logger.Warn("Posting conflict, retrying with fresh balances",
			"entry_id", entry.ID.String(),
			"attempt", attempt,
		)
	}

	var conflict account.ErrConcurrentModification
	conflictID := uuid.Nil
	if errors.As(lastErr, &conflict) {
		conflictID = conflict.AccountID
	}
	return nil, ErrAccountUpdateConflict{AccountID: conflictID, Attempts: e.maxAttempts}
}

// replayByKey returns the result of an earlier posting carrying the key, or
// nil when the key is unseen
func (e *Engine) replayByKey(ctx context.Context, key string) (*Result, error) {
	existing, err := e.entries.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if existing == nil {
		return nil, nil
	}
	e.logger.Info("Journal entry already posted for idempotency key",
		"idempotency_key", key,
		"entry_id", existing.ID.String(),
	)
	return &Result{EntryID: existing.ID, AccountIDs: existing.AccountIDs(), Replayed: true}, nil
}

// postOnce runs one transactional attempt of a posting
func (e *Engine) postOnce(ctx context.Context, entry *journal.Entry) (*Result, error) {
	var result *Result

	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountsTx := e.accounts.WithTx(tx)
		entriesTx := e.entries.WithTx(tx)
		rowsTx := e.rows.WithTx(tx)
		outboxTx := e.outbox.WithTx(tx)

		if err := entriesTx.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to store journal entry: %w", err)
		}

		postedRows := make([]*ledger.Row, 0, len(entry.Lines))
		for _, line := range entry.Lines {
			row, err := e.postLine(ctx, accountsTx, rowsTx, &entry.ID, entry.Date, entry.Description, line, false)
			if err != nil {
				return err
			}
			postedRows = append(postedRows, row)
		}

		event := ledger.NewCommittedEvent(&entry.ID, postedRows, correlationID(ctx))
		msg, err := outbox.NewMessage(event)
		if err != nil {
			return fmt.Errorf("failed to build outbox message: %w", err)
		}
		if err := outboxTx.Create(ctx, msg); err != nil {
			return fmt.Errorf("failed to store outbox message: %w", err)
		}

		rowIDs := make([]uuid.UUID, len(postedRows))
		for i, r := range postedRows {
			rowIDs[i] = r.ID
		}
		result = &Result{
			EntryID:    entry.ID,
			RowIDs:     rowIDs,
			AccountIDs: event.AccountIDs,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Journal entry posted",
		"entry_id", entry.ID.String(),
		"lines", len(entry.Lines),
		"total_debit", entry.TotalDebit().StringFixed(2),
	)
	return result, nil
}

// postLine applies one debit/credit line inside the posting transaction: it
// locks the account, reads the latest running balance from the ledger, applies
// the sign convention, appends the new row and accumulates the account totals.
func (e *Engine) postLine(
	ctx context.Context,
	accountsTx account.Repository,
	rowsTx ledger.Repository,
	entryID *uuid.UUID,
	date time.Time,
	description string,
	line journal.Line,
	manual bool,
) (*ledger.Row, error) {
	acc, err := accountsTx.LockForUpdate(ctx, line.AccountID)
	if err != nil {
		return nil, err
	}

	latest, err := rowsTx.Latest(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest ledger row for account %s: %w", acc.ID, err)
	}
	current := decimal.Zero
	if latest != nil {
		current = latest.Balance
	}

	newBalance := acc.Type.Apply(current, line.Debit, line.Credit)
	row := ledger.NewRow(acc.ID, entryID, date, description, line.Debit, line.Credit, newBalance, manual)
	if err := rowsTx.Append(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to append ledger row for account %s: %w", acc.ID, err)
	}

	acc.ApplyPosting(line.Debit, line.Credit, newBalance)
	if err := accountsTx.UpdateTotals(ctx, acc); err != nil {
		return nil, err
	}

	return row, nil
}

// PostDirect writes a single manual ledger row outside any journal entry.
// It bypasses the multi-line balance invariants but still requires an
// existing non-header account and exactly one of debit/credit.
func (e *Engine) PostDirect(ctx context.Context, accountID uuid.UUID, date time.Time, description string, debit, credit decimal.Decimal) (*ledger.Row, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, journal.ValidationError{Code: journal.CodeEmptyDescription, Detail: "description cannot be blank"}
	}
	if debit.IsNegative() || credit.IsNegative() {
		return nil, journal.ValidationError{Code: journal.CodeMixedLine, AccountID: accountID, Detail: "amounts cannot be negative"}
	}
	if debit.IsPositive() == credit.IsPositive() {
		return nil, journal.ValidationError{Code: journal.CodeMixedLine, AccountID: accountID, Detail: "exactly one of debit or credit must be set"}
	}

	acc, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, journal.ValidationError{Code: journal.CodeInvalidAccount, AccountID: accountID, Detail: "account does not exist"}
		}
		return nil, fmt.Errorf("failed to look up account %s: %w", accountID, err)
	}
	if !acc.Postable() {
		return nil, journal.ValidationError{Code: journal.CodeInvalidAccount, AccountID: accountID, Detail: fmt.Sprintf("account %s (%s) is a header account", acc.Code, acc.Name)}
	}

	line := journal.Line{AccountID: accountID, Debit: debit, Credit: credit}

	var posted *ledger.Row
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		lastErr = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			accountsTx := e.accounts.WithTx(tx)
			rowsTx := e.rows.WithTx(tx)
			outboxTx := e.outbox.WithTx(tx)

			row, err := e.postLine(ctx, accountsTx, rowsTx, nil, date, description, line, true)
			if err != nil {
				return err
			}

			event := ledger.NewCommittedEvent(nil, []*ledger.Row{row}, correlationID(ctx))
			msg, err := outbox.NewMessage(event)
			if err != nil {
				return fmt.Errorf("failed to build outbox message: %w", err)
			}
			if err := outboxTx.Create(ctx, msg); err != nil {
				return fmt.Errorf("failed to store outbox message: %w", err)
			}

			posted = row
			return nil
		})
		if lastErr == nil {
			e.logger.Info("Manual ledger row posted",
				"account_id", accountID.String(),
				"row_id", posted.ID.String(),
			)
			return posted, nil
		}
		if !errors.Is(lastErr, account.ErrConcurrentModification{}) {
			return nil, lastErr
		}
	}

	return nil, ErrAccountUpdateConflict{AccountID: accountID, Attempts: e.maxAttempts}
}

// DeleteEntry removes a journal entry and its ledger rows, then rebuilds the
// balances of every affected account from the remaining history. Deleting a
// row invalidates the stored balance of every later row on the same account,
// so the replay is not optional.
func (e *Engine) DeleteEntry(ctx context.Context, entryID uuid.UUID) error {
	if e.recomputeTO > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.recomputeTO)
		defer cancel()
	}

	return e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		entriesTx := e.entries.WithTx(tx)
		rowsTx := e.rows.WithTx(tx)
		accountsTx := e.accounts.WithTx(tx)

		if _, err := entriesTx.GetByID(ctx, entryID); err != nil {
			return err
		}

		rows, err := rowsTx.ByEntryID(ctx, entryID)
		if err != nil {
			return fmt.Errorf("failed to load rows for entry %s: %w", entryID, err)
		}
		affected := make(map[uuid.UUID]bool, len(rows))
		for _, r := range rows {
			affected[r.AccountID] = true
		}

		if _, err := rowsTx.DeleteByEntryID(ctx, entryID); err != nil {
			return fmt.Errorf("failed to delete rows for entry %s: %w", entryID, err)
		}
		if err := entriesTx.Delete(ctx, entryID); err != nil {
			return err
		}

		for accountID := range affected {
			if _, err := e.recomputeInTx(ctx, accountsTx, rowsTx, accountID); err != nil {
				return err
			}
		}

		e.logger.Info("Journal entry deleted and balances rebuilt",
			"entry_id", entryID.String(),
			"accounts", len(affected),
		)
		return nil
	})
}

type correlationKey struct{}

// WithCorrelationID attaches a correlation id that ends up on the committed
// rows event for tracing across the outbox pipeline.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}
