package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Row is one posted line in the general ledger. Rows are append-only in
// normal operation; corrections go through recompute.
type Row struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	EntryID     *uuid.UUID      `json:"entry_id,omitempty"` // nil for manual entries
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"` // Running balance after this row
	ManualEntry bool            `json:"manual_entry"`
	CreatedAt   time.Time       `json:"created_at"` // Tiebreaker for same-date ordering
}

// NewRow creates a ledger row carrying the account's running balance after
// the row is applied.
func NewRow(accountID uuid.UUID, entryID *uuid.UUID, date time.Time, description string, debit, credit, balance decimal.Decimal, manual bool) *Row {
	return &Row{
		ID:          uuid.New(),
		AccountID:   accountID,
		EntryID:     entryID,
		Date:        date,
		Description: description,
		Debit:       debit,
		Credit:      credit,
		Balance:     balance,
		ManualEntry: manual,
		CreatedAt:   time.Now(),
	}
}

// CommittedEvent is published after a posting commits, carrying the rows that
// were written so downstream consumers can refresh or archive without
// re-reading the ledger.
type CommittedEvent struct {
	EntryID       *uuid.UUID  `json:"entry_id,omitempty"`
	AccountIDs    []uuid.UUID `json:"account_ids"`
	Rows          []*Row      `json:"rows"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// NewCommittedEvent builds the event for a set of rows posted in one
// transaction.
func NewCommittedEvent(entryID *uuid.UUID, rows []*Row, correlationID string) *CommittedEvent {
	seen := make(map[uuid.UUID]bool, len(rows))
	var accountIDs []uuid.UUID
	for _, r := range rows {
		if !seen[r.AccountID] {
			seen[r.AccountID] = true
			accountIDs = append(accountIDs, r.AccountID)
		}
	}
	return &CommittedEvent{
		EntryID:       entryID,
		AccountIDs:    accountIDs,
		Rows:          rows,
		CorrelationID: correlationID,
		OccurredAt:    time.Now().UTC(),
	}
}
