package posting

import (
	"github.com/google/uuid"
)

// ErrAccountUpdateConflict is returned when an account's balance kept moving
// under a posting despite bounded retries. The condition is transient; the
// caller may retry the whole entry.
type ErrAccountUpdateConflict struct {
	AccountID uuid.UUID
	Attempts  int
}

func (e ErrAccountUpdateConflict) Error() string {
	return "account update conflict after retries: " + e.AccountID.String()
}

// Is matches any ErrAccountUpdateConflict when the target carries a nil ID
func (e ErrAccountUpdateConflict) Is(target error) bool {
	t, ok := target.(ErrAccountUpdateConflict)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}
