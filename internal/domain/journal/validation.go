package journal

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationCode identifies why an entry was rejected before any write
type ValidationCode string

const (
	CodeEmptyDescription  ValidationCode = "EMPTY_DESCRIPTION"
	CodeInsufficientLines ValidationCode = "INSUFFICIENT_LINES"
	CodeInvalidAccount    ValidationCode = "INVALID_ACCOUNT"
	CodeMixedLine         ValidationCode = "MIXED_LINE"
	CodeMissingSide       ValidationCode = "MISSING_SIDE"
	CodeUnbalanced        ValidationCode = "UNBALANCED"
)

// ValidationError reports a single invariant violation. Validation failures
// are always safe to retry after the entry is corrected.
type ValidationError struct {
	Code      ValidationCode
	Line      int // 1-based line number, 0 when the entry as a whole is at fault
	AccountID uuid.UUID
	Detail    string
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Code, e.Line, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Is matches any ValidationError with the same code; an empty target code
// matches every ValidationError.
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// Validate enforces the structural invariants of a journal entry: a non-blank
// description, at least two lines, exactly one side per line, at least one
// debit and one credit line, and balanced totals. Account existence and
// header-account checks need the chart of accounts and live in the posting
// engine.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return ValidationError{Code: CodeEmptyDescription, Detail: "description cannot be blank"}
	}
	if len(e.Lines) < 2 {
		return ValidationError{
			Code:   CodeInsufficientLines,
			Detail: fmt.Sprintf("journal entry needs at least 2 lines, got %d", len(e.Lines)),
		}
	}

	hasDebit := false
	hasCredit := false
	for i, l := range e.Lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return ValidationError{
				Code:      CodeMixedLine,
				Line:      i + 1,
				AccountID: l.AccountID,
				Detail:    "amounts cannot be negative",
			}
		}
		debitSet := l.Debit.IsPositive()
		creditSet := l.Credit.IsPositive()
		if debitSet == creditSet {
			return ValidationError{
				Code:      CodeMixedLine,
				Line:      i + 1,
				AccountID: l.AccountID,
				Detail:    "line must have exactly one of debit or credit",
			}
		}
		hasDebit = hasDebit || debitSet
		hasCredit = hasCredit || creditSet
	}

	if !hasDebit || !hasCredit {
		return ValidationError{
			Code:   CodeMissingSide,
			Detail: "entry needs at least one debit line and one credit line",
		}
	}

	if !e.Balanced() {
		return ValidationError{
			Code: CodeUnbalanced,
			Detail: fmt.Sprintf("total debit %s does not equal total credit %s",
				e.TotalDebit().StringFixed(2), e.TotalCredit().StringFixed(2)),
		}
	}

	return nil
}
