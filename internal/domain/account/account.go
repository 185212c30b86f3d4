package account

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrEmptyCode   = errors.New("account code cannot be empty")
	ErrEmptyName   = errors.New("account name cannot be empty")
	ErrUnknownType = errors.New("unknown account type")
)

// Type classifies an account in the chart of accounts. The stored values are
// the labels used in the bookkeeping data (Indonesian).
type Type string

const (
	TypeAsset     Type = "Aset"
	TypeLiability Type = "Kewajiban"
	TypeEquity    Type = "Modal"
	TypeRevenue   Type = "Pendapatan"
	TypeExpense   Type = "Beban"
)

// ParseType resolves a type label to one of the closed set of account types.
// English aliases are accepted for API callers.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aset", "asset":
		return TypeAsset, nil
	case "kewajiban", "liability":
		return TypeLiability, nil
	case "modal", "equity":
		return TypeEquity, nil
	case "pendapatan", "revenue":
		return TypeRevenue, nil
	case "beban", "expense":
		return TypeExpense, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// DebitNormal reports whether a debit increases the balance of this account type.
func (t Type) DebitNormal() bool {
	return t == TypeAsset || t == TypeExpense
}

// Apply returns the balance after posting the given debit and credit under the
// type's normal-balance sign convention: assets and expenses grow on the debit
// side, liabilities, equity and revenue grow on the credit side.
func (t Type) Apply(balance, debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return balance.Add(debit).Sub(credit)
	}
	return balance.Sub(debit).Add(credit)
}

// Account represents a row in the chart of accounts
type Account struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"` // Unique, sortable, e.g. "1101" for Kas
	Name        string          `json:"name"`
	Type        Type            `json:"type"`
	IsHeader    bool            `json:"is_header"` // Header accounts group leaves and never accept postings
	ParentID    *uuid.UUID      `json:"parent_id,omitempty"`
	Balance     decimal.Decimal `json:"balance"`      // Running total, derived from the ledger
	TotalDebit  decimal.Decimal `json:"total_debit"`  // Lifetime cumulative debits
	TotalCredit decimal.Decimal `json:"total_credit"` // Lifetime cumulative credits
	Version     int             `json:"version"`      // For optimistic locking
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// New creates an account with zeroed totals
func New(code, name string, accType Type, isHeader bool, parentID *uuid.UUID) (*Account, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if _, err := ParseType(string(accType)); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Account{
		ID:          uuid.New(),
		Code:        code,
		Name:        strings.TrimSpace(name),
		Type:        accType,
		IsHeader:    isHeader,
		ParentID:    parentID,
		Balance:     decimal.Zero,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Postable reports whether ledger rows may be written against this account.
func (a *Account) Postable() bool {
	return !a.IsHeader
}

// ApplyPosting accumulates a posted line into the account totals. The caller
// supplies the new running balance computed from the latest ledger row.
func (a *Account) ApplyPosting(debit, credit, newBalance decimal.Decimal) {
	a.TotalDebit = a.TotalDebit.Add(debit)
	a.TotalCredit = a.TotalCredit.Add(credit)
	a.Balance = newBalance
	a.UpdatedAt = time.Now()
	a.Version++
}

// SetTotals overwrites the derived totals, used by recompute after replaying
// the full ledger history.
func (a *Account) SetTotals(balance, totalDebit, totalCredit decimal.Decimal) {
	a.Balance = balance
	a.TotalDebit = totalDebit
	a.TotalCredit = totalCredit
	a.UpdatedAt = time.Now()
	a.Version++
}
