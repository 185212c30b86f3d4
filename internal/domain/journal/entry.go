package journal

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceEpsilon is the largest tolerated difference between an entry's total
// debits and total credits (one cent).
var BalanceEpsilon = decimal.NewFromFloat(0.01)

// Line is a single debit or credit against one account. Exactly one of
// Debit/Credit must be nonzero.
type Line struct {
	AccountID uuid.UUID       `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// Entry is a balanced set of ledger lines posted together as one business
// transaction.
type Entry struct {
	ID             uuid.UUID `json:"id"`
	Date           time.Time `json:"date"`
	Description    string    `json:"description"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Lines          []Line    `json:"lines"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewEntry creates a journal entry with a fresh id. The description is trimmed;
// validation happens in the posting engine before any write.
func NewEntry(date time.Time, description, idempotencyKey string, lines []Line) *Entry {
	return &Entry{
		ID:             uuid.New(),
		Date:           date,
		Description:    strings.TrimSpace(description),
		IdempotencyKey: idempotencyKey,
		Lines:          lines,
		CreatedAt:      time.Now(),
	}
}

// TotalDebit sums the debit side of all lines.
func (e *Entry) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

// TotalCredit sums the credit side of all lines.
func (e *Entry) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// Balanced reports whether debits equal credits within BalanceEpsilon.
func (e *Entry) Balanced() bool {
	diff := e.TotalDebit().Sub(e.TotalCredit()).Abs()
	return diff.Cmp(BalanceEpsilon) < 0
}

// AccountIDs returns the distinct accounts touched by the entry, in line order.
func (e *Entry) AccountIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(e.Lines))
	var ids []uuid.UUID
	for _, l := range e.Lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			ids = append(ids, l.AccountID)
		}
	}
	return ids
}
