package posting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/wisatabooks/ledger/internal/domain/account"
	"github.com/wisatabooks/ledger/internal/domain/ledger"
)

// Recompute replays the full ledger history of one account in (date,
// created_at) order from zero, rewrites any row whose stored running balance
// drifted, and persists the authoritative totals. It is the repair path after
// out-of-band row edits and the basis of the reconciliation check.
func (e *Engine) Recompute(ctx context.Context, accountID uuid.UUID) (*account.Account, error) {
	if e.recomputeTO > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.recomputeTO)
		defer cancel()
	}

	var result *account.Account
	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		acc, err := e.recomputeInTx(ctx, e.accounts.WithTx(tx), e.rows.WithTx(tx), accountID)
		if err != nil {
			return err
		}
		result = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Account balances recomputed",
		"account_id", accountID.String(),
		"balance", result.Balance.StringFixed(2),
	)
	return result, nil
}

// recomputeInTx holds the account's posting lock while replaying, so no new
// row can interleave with the rewrite.
func (e *Engine) recomputeInTx(ctx context.Context, accountsTx account.Repository, rowsTx ledger.Repository, accountID uuid.UUID) (*account.Account, error) {
	acc, err := accountsTx.LockForUpdate(ctx, accountID)
	if err != nil {
		return nil, err
	}

	history, err := rowsTx.History(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger history for account %s: %w", accountID, err)
	}

	balance := decimal.Zero
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, row := range history {
		balance = acc.Type.Apply(balance, row.Debit, row.Credit)
		totalDebit = totalDebit.Add(row.Debit)
		totalCredit = totalCredit.Add(row.Credit)

		if !row.Balance.Equal(balance) {
			if err := rowsTx.UpdateBalance(ctx, row.ID, balance); err != nil {
				return nil, fmt.Errorf("failed to rewrite balance on row %s: %w", row.ID, err)
			}
		}
	}

	acc.SetTotals(balance, totalDebit, totalCredit)
	if err := accountsTx.UpdateTotals(ctx, acc); err != nil {
		return nil, err
	}

	return acc, nil
}

// RecomputeAll rebuilds every postable account touched in the given window
// (both bounds optional). Each account is recomputed in its own transaction
// so one failure does not roll back the whole pass; the first error stops
// the pass and is returned.
func (e *Engine) RecomputeAll(ctx context.Context, from, to *time.Time) (int, error) {
	if e.recomputeTO > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.recomputeTO)
		defer cancel()
	}

	accountIDs, err := e.rows.AccountIDs(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to list accounts for recompute: %w", err)
	}

	for i, id := range accountIDs {
		if ctx.Err() != nil {
			return i, fmt.Errorf("bulk recompute interrupted after %d of %d accounts: %w", i, len(accountIDs), ctx.Err())
		}
		if _, err := e.Recompute(ctx, id); err != nil {
			return i, fmt.Errorf("bulk recompute failed at account %s: %w", id, err)
		}
	}

	e.logger.Info("Bulk recompute finished", "accounts", len(accountIDs))
	return len(accountIDs), nil
}
