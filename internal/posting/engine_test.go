package posting

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wisatabooks/ledger/internal/domain/account"
	"github.com/wisatabooks/ledger/internal/domain/journal"
	"github.com/wisatabooks/ledger/internal/domain/ledger"
	"github.com/wisatabooks/ledger/internal/domain/outbox"
)

// fakeTxRunner runs the transactional closure directly; the mocks return
// themselves from WithTx so the engine's in-transaction calls land on them.
type fakeTxRunner struct{}

func (fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) GetByCode(ctx context.Context, code string) (*account.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) List(ctx context.Context) ([]*account.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountRepo) ListPostable(ctx context.Context) ([]*account.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountRepo) UpdateTotals(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	return m
}

type MockEntryRepo struct {
	mock.Mock
}

func (m *MockEntryRepo) Create(ctx context.Context, entry *journal.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*journal.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Entry), args.Error(1)
}

func (m *MockEntryRepo) GetByIdempotencyKey(ctx context.Context, key string) (*journal.Entry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Entry), args.Error(1)
}

func (m *MockEntryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEntryRepo) WithTx(tx pgx.Tx) journal.Repository {
	return m
}

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Append(ctx context.Context, row *ledger.Row) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockLedgerRepo) Latest(ctx context.Context, accountID uuid.UUID) (*ledger.Row, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Row), args.Error(1)
}

func (m *MockLedgerRepo) History(ctx context.Context, accountID uuid.UUID) ([]*ledger.Row, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Row), args.Error(1)
}

func (m *MockLedgerRepo) ByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Row, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Row), args.Error(1)
}

func (m *MockLedgerRepo) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) ByEntryID(ctx context.Context, entryID uuid.UUID) ([]*ledger.Row, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Row), args.Error(1)
}

func (m *MockLedgerRepo) DeleteByEntryID(ctx context.Context, entryID uuid.UUID) (int64, error) {
	args := m.Called(ctx, entryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) UpdateBalance(ctx context.Context, rowID uuid.UUID, balance decimal.Decimal) error {
	args := m.Called(ctx, rowID, balance)
	return args.Error(0)
}

func (m *MockLedgerRepo) AccountIDs(ctx context.Context, from, to *time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type engineMocks struct {
	accounts *MockAccountRepo
	entries  *MockEntryRepo
	rows     *MockLedgerRepo
	outbox   *MockOutboxRepo
}

func newTestEngine(t *testing.T) (*Engine, *engineMocks) {
	t.Helper()
	m := &engineMocks{
		accounts: &MockAccountRepo{},
		entries:  &MockEntryRepo{},
		rows:     &MockLedgerRepo{},
		outbox:   &MockOutboxRepo{},
	}
	engine := NewEngine(fakeTxRunner{}, m.accounts, m.entries, m.rows, m.outbox, Config{
		Timeout:          5 * time.Second,
		RecomputeTimeout: 30 * time.Second,
		MaxAttempts:      3,
	}, slog.Default())
	return engine, m
}

func postableAccount(accType account.Type, code string, balance decimal.Decimal) *account.Account {
	return &account.Account{
		ID:      uuid.New(),
		Code:    code,
		Name:    "Test " + code,
		Type:    accType,
		Balance: balance,
		Version: 1,
	}
}

func balancedEntry(kasID, revenueID uuid.UUID, amount string) *journal.Entry {
	amt := decimal.RequireFromString(amount)
	return journal.NewEntry(
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		"Penjualan tiket pesawat",
		"",
		[]journal.Line{
			{AccountID: kasID, Debit: amt, Credit: decimal.Zero},
			{AccountID: revenueID, Credit: amt, Debit: decimal.Zero},
		},
	)
}

func TestEngine_Post(t *testing.T) {
	ctx := context.Background()

	t.Run("posts balanced entry and carries running balances", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.NewFromInt(1000000))
		revenue := postableAccount(account.TypeRevenue, "4101", decimal.Zero)
		entry := balancedEntry(kas.ID, revenue.ID, "300000")

		m.accounts.On("GetByID", mock.Anything, kas.ID).Return(kas, nil)
		m.accounts.On("GetByID", mock.Anything, revenue.ID).Return(revenue, nil)
		m.entries.On("Create", mock.Anything, entry).Return(nil)

		m.accounts.On("LockForUpdate", mock.Anything, kas.ID).Return(kas, nil)
		m.accounts.On("LockForUpdate", mock.Anything, revenue.ID).Return(revenue, nil)

		// Kas has prior rows; revenue has none yet
		latestKas := &ledger.Row{AccountID: kas.ID, Balance: decimal.NewFromInt(1000000)}
		m.rows.On("Latest", mock.Anything, kas.ID).Return(latestKas, nil)
		m.rows.On("Latest", mock.Anything, revenue.ID).Return(nil, nil)

		var appended []*ledger.Row
		m.rows.On("Append", mock.Anything, mock.AnythingOfType("*ledger.Row")).
			Run(func(args mock.Arguments) {
				appended = append(appended, args.Get(1).(*ledger.Row))
			}).Return(nil)

		m.accounts.On("UpdateTotals", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)

		var msg *outbox.Message
		m.outbox.On("Create", mock.Anything, mock.AnythingOfType("*outbox.Message")).
			Run(func(args mock.Arguments) {
				msg = args.Get(1).(*outbox.Message)
			}).Return(nil)

		result, err := engine.Post(ctx, entry)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, entry.ID, result.EntryID)
		assert.False(t, result.Replayed)
		assert.Len(t, result.RowIDs, 2)

		require.Len(t, appended, 2)
		assert.True(t, appended[0].Balance.Equal(decimal.NewFromInt(1300000)),
			"asset debit should grow the running balance, got %s", appended[0].Balance)
		assert.True(t, appended[1].Balance.Equal(decimal.NewFromInt(300000)),
			"revenue credit should grow the running balance, got %s", appended[1].Balance)
		assert.False(t, appended[0].ManualEntry)

		// Account totals accumulated alongside the rows
		assert.True(t, kas.TotalDebit.Equal(decimal.NewFromInt(300000)))
		assert.True(t, revenue.TotalCredit.Equal(decimal.NewFromInt(300000)))
		assert.Equal(t, 2, kas.Version)

		// Outbox message written in the same transaction
		require.NotNil(t, msg)
		event, err := msg.Event()
		require.NoError(t, err)
		assert.Equal(t, entry.ID, *event.EntryID)
		assert.Len(t, event.Rows, 2)
	})

	t.Run("rejects unbalanced entry before any write", func(t *testing.T) {
		engine, m := newTestEngine(t)

		entry := journal.NewEntry(time.Now(), "Penjualan", "", []journal.Line{
			{AccountID: uuid.New(), Debit: decimal.NewFromInt(100), Credit: decimal.Zero},
			{AccountID: uuid.New(), Credit: decimal.NewFromInt(90), Debit: decimal.Zero},
		})

		_, err := engine.Post(ctx, entry)
		assert.ErrorIs(t, err, journal.ValidationError{Code: journal.CodeUnbalanced})
		m.entries.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.rows.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown account", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.Zero)
		missing := uuid.New()
		entry := balancedEntry(kas.ID, missing, "100")

		m.accounts.On("GetByID", mock.Anything, kas.ID).Return(kas, nil)
		m.accounts.On("GetByID", mock.Anything, missing).Return(nil, account.ErrAccountNotFound{AccountID: missing})

		_, err := engine.Post(ctx, entry)
		var vErr journal.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, journal.CodeInvalidAccount, vErr.Code)
		assert.Equal(t, 2, vErr.Line)
		assert.Equal(t, missing, vErr.AccountID)
	})

	t.Run("rejects header account", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.Zero)
		header := postableAccount(account.TypeAsset, "1000", decimal.Zero)
		header.IsHeader = true
		entry := balancedEntry(header.ID, kas.ID, "100")

		m.accounts.On("GetByID", mock.Anything, header.ID).Return(header, nil)
		m.accounts.On("GetByID", mock.Anything, kas.ID).Return(kas, nil)

		_, err := engine.Post(ctx, entry)
		var vErr journal.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, journal.CodeInvalidAccount, vErr.Code)
		assert.Equal(t, 1, vErr.Line)
	})

	t.Run("replays idempotency key without writes", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.Zero)
		revenue := postableAccount(account.TypeRevenue, "4101", decimal.Zero)
		existing := balancedEntry(kas.ID, revenue.ID, "100")
		existing.IdempotencyKey = "invoice-2024-001"

		retry := balancedEntry(kas.ID, revenue.ID, "100")
		retry.IdempotencyKey = "invoice-2024-001"

		m.accounts.On("GetByID", mock.Anything, kas.ID).Return(kas, nil)
		m.accounts.On("GetByID", mock.Anything, revenue.ID).Return(revenue, nil)
		m.entries.On("GetByIdempotencyKey", mock.Anything, "invoice-2024-001").Return(existing, nil)

		result, err := engine.Post(ctx, retry)
		require.NoError(t, err)
		assert.True(t, result.Replayed)
		assert.Equal(t, existing.ID, result.EntryID)
		m.entries.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("replays when a concurrent post wins the idempotency insert race", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.Zero)
		revenue := postableAccount(account.TypeRevenue, "4101", decimal.Zero)

		winner := balancedEntry(kas.ID, revenue.ID, "100")
		winner.IdempotencyKey = "invoice-2024-002"
		loser := balancedEntry(kas.ID, revenue.ID, "100")
		loser.IdempotencyKey = "invoice-2024-002"

		m.accounts.On("GetByID", mock.Anything, kas.ID).Return(kas, nil)
		m.accounts.On("GetByID", mock.Anything, revenue.ID).Return(revenue, nil)

		// The pre-check sees a fresh key, then the insert loses to the
		// concurrent winner and the second lookup finds the winner's entry
		m.entries.On("GetByIdempotencyKey", mock.Anything, "invoice-2024-002").Return(nil, nil).Once()
		m.entries.On("Create", mock.Anything, loser).
			Return(journal.ErrDuplicateEntry{EntryID: loser.ID})
		m.entries.On("GetByIdempotencyKey", mock.Anything, "invoice-2024-002").Return(winner, nil).Once()

		result, err := engine.Post(ctx, loser)
		require.NoError(t, err)
		assert.True(t, result.Replayed)
		assert.Equal(t, winner.ID, result.EntryID)
		m.entries.AssertExpectations(t)
	})

	t.Run("retries on version conflict and succeeds", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.Zero)
		revenue := postableAccount(account.TypeRevenue, "4101", decimal.Zero)
		entry := balancedEntry(kas.ID, revenue.ID, "100")

		m.accounts.On("GetByID", mock.Anything, kas.ID).Return(kas, nil)
		m.accounts.On("GetByID", mock.Anything, revenue.ID).Return(revenue, nil)
		m.entries.On("Create", mock.Anything, entry).Return(nil)
		m.accounts.On("LockForUpdate", mock.Anything, kas.ID).Return(kas, nil)
		m.accounts.On("LockForUpdate", mock.Anything, revenue.ID).Return(revenue, nil)
		m.rows.On("Latest", mock.Anything, mock.Anything).Return(nil, nil)
		m.rows.On("Append", mock.Anything, mock.Anything).Return(nil)
		m.outbox.On("Create", mock.Anything, mock.Anything).Return(nil)

		// First attempt loses the race, second goes through
		m.accounts.On("UpdateTotals", mock.Anything, mock.Anything).
			Return(account.ErrConcurrentModification{AccountID: kas.ID}).Once()
		m.accounts.On("UpdateTotals", mock.Anything, mock.Anything).Return(nil)

		result, err := engine.Post(ctx, entry)
		require.NoError(t, err)
		assert.Equal(t, entry.ID, result.EntryID)
	})

	t.Run("surfaces conflict after exhausting retries", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.Zero)
		revenue := postableAccount(account.TypeRevenue, "4101", decimal.Zero)
		entry := balancedEntry(kas.ID, revenue.ID, "100")

		m.accounts.On("GetByID", mock.Anything, kas.ID).Return(kas, nil)
		m.accounts.On("GetByID", mock.Anything, revenue.ID).Return(revenue, nil)
		m.entries.On("Create", mock.Anything, entry).Return(nil)
		m.accounts.On("LockForUpdate", mock.Anything, mock.Anything).Return(kas, nil)
		m.rows.On("Latest", mock.Anything, mock.Anything).Return(nil, nil)
		m.rows.On("Append", mock.Anything, mock.Anything).Return(nil)
		m.accounts.On("UpdateTotals", mock.Anything, mock.Anything).
			Return(account.ErrConcurrentModification{AccountID: kas.ID})

		_, err := engine.Post(ctx, entry)
		var conflict ErrAccountUpdateConflict
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, kas.ID, conflict.AccountID)
		assert.Equal(t, 3, conflict.Attempts)
		m.accounts.AssertNumberOfCalls(t, "UpdateTotals", 3)
	})
}

func TestEngine_PostDirect(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("posts manual row with running balance", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.NewFromInt(500000))
		m.accounts.On("GetByID", mock.Anything, kas.ID).Return(kas, nil)
		m.accounts.On("LockForUpdate", mock.Anything, kas.ID).Return(kas, nil)
		latest := &ledger.Row{AccountID: kas.ID, Balance: decimal.NewFromInt(500000)}
		m.rows.On("Latest", mock.Anything, kas.ID).Return(latest, nil)
		m.rows.On("Append", mock.Anything, mock.AnythingOfType("*ledger.Row")).Return(nil)
		m.accounts.On("UpdateTotals", mock.Anything, mock.Anything).Return(nil)
		m.outbox.On("Create", mock.Anything, mock.Anything).Return(nil)

		row, err := engine.PostDirect(ctx, kas.ID, date, "Koreksi saldo kas", decimal.NewFromInt(50000), decimal.Zero)
		require.NoError(t, err)
		assert.True(t, row.ManualEntry)
		assert.Nil(t, row.EntryID)
		assert.True(t, row.Balance.Equal(decimal.NewFromInt(550000)))
	})

	t.Run("rejects blank description", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		_, err := engine.PostDirect(ctx, uuid.New(), date, "", decimal.NewFromInt(100), decimal.Zero)
		assert.ErrorIs(t, err, journal.ValidationError{Code: journal.CodeEmptyDescription})
	})

	t.Run("rejects whitespace-only description", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		_, err := engine.PostDirect(ctx, uuid.New(), date, "  \t ", decimal.NewFromInt(100), decimal.Zero)
		assert.ErrorIs(t, err, journal.ValidationError{Code: journal.CodeEmptyDescription})
	})

	t.Run("trims description before posting", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.Zero)
		m.accounts.On("GetByID", mock.Anything, kas.ID).Return(kas, nil)
		m.accounts.On("LockForUpdate", mock.Anything, kas.ID).Return(kas, nil)
		m.rows.On("Latest", mock.Anything, kas.ID).Return(nil, nil)
		m.rows.On("Append", mock.Anything, mock.AnythingOfType("*ledger.Row")).Return(nil)
		m.accounts.On("UpdateTotals", mock.Anything, mock.Anything).Return(nil)
		m.outbox.On("Create", mock.Anything, mock.Anything).Return(nil)

		row, err := engine.PostDirect(ctx, kas.ID, date, "  Koreksi saldo kas  ", decimal.NewFromInt(100), decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, "Koreksi saldo kas", row.Description)
	})

	t.Run("rejects both sides set", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		_, err := engine.PostDirect(ctx, uuid.New(), date, "Koreksi", decimal.NewFromInt(100), decimal.NewFromInt(100))
		assert.ErrorIs(t, err, journal.ValidationError{Code: journal.CodeMixedLine})
	})

	t.Run("rejects neither side set", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		_, err := engine.PostDirect(ctx, uuid.New(), date, "Koreksi", decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, journal.ValidationError{Code: journal.CodeMixedLine})
	})

	t.Run("rejects header account", func(t *testing.T) {
		engine, m := newTestEngine(t)
		header := postableAccount(account.TypeAsset, "1000", decimal.Zero)
		header.IsHeader = true
		m.accounts.On("GetByID", mock.Anything, header.ID).Return(header, nil)

		_, err := engine.PostDirect(ctx, header.ID, date, "Koreksi", decimal.NewFromInt(100), decimal.Zero)
		assert.ErrorIs(t, err, journal.ValidationError{Code: journal.CodeInvalidAccount})
	})
}

func TestEngine_Recompute(t *testing.T) {
	ctx := context.Background()

	t.Run("replays history and rewrites drifted balances", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.NewFromInt(999))
		m.accounts.On("LockForUpdate", mock.Anything, kas.ID).Return(kas, nil)

		// Second row's stored balance drifted after an out-of-band edit
		row1 := &ledger.Row{ID: uuid.New(), AccountID: kas.ID, Debit: decimal.NewFromInt(100000), Credit: decimal.Zero, Balance: decimal.NewFromInt(100000)}
		row2 := &ledger.Row{ID: uuid.New(), AccountID: kas.ID, Debit: decimal.Zero, Credit: decimal.NewFromInt(30000), Balance: decimal.NewFromInt(99999)}
		m.rows.On("History", mock.Anything, kas.ID).Return([]*ledger.Row{row1, row2}, nil)

		m.rows.On("UpdateBalance", mock.Anything, row2.ID, mock.MatchedBy(func(b decimal.Decimal) bool {
			return b.Equal(decimal.NewFromInt(70000))
		})).Return(nil)
		m.accounts.On("UpdateTotals", mock.Anything, kas).Return(nil)

		acc, err := engine.Recompute(ctx, kas.ID)
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(decimal.NewFromInt(70000)))
		assert.True(t, acc.TotalDebit.Equal(decimal.NewFromInt(100000)))
		assert.True(t, acc.TotalCredit.Equal(decimal.NewFromInt(30000)))
		m.rows.AssertNumberOfCalls(t, "UpdateBalance", 1)
	})

	t.Run("empty history zeroes the account", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.NewFromInt(123456))
		m.accounts.On("LockForUpdate", mock.Anything, kas.ID).Return(kas, nil)
		m.rows.On("History", mock.Anything, kas.ID).Return([]*ledger.Row{}, nil)
		m.accounts.On("UpdateTotals", mock.Anything, kas).Return(nil)

		acc, err := engine.Recompute(ctx, kas.ID)
		require.NoError(t, err)
		assert.True(t, acc.Balance.IsZero())
		assert.True(t, acc.TotalDebit.IsZero())
		assert.True(t, acc.TotalCredit.IsZero())
	})

	t.Run("unknown account", func(t *testing.T) {
		engine, m := newTestEngine(t)

		id := uuid.New()
		m.accounts.On("LockForUpdate", mock.Anything, id).Return(nil, account.ErrAccountNotFound{AccountID: id})

		_, err := engine.Recompute(ctx, id)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: id})
	})
}

func TestEngine_RecomputeAll(t *testing.T) {
	ctx := context.Background()

	t.Run("recomputes every account with rows", func(t *testing.T) {
		engine, m := newTestEngine(t)

		acc1 := postableAccount(account.TypeAsset, "1101", decimal.Zero)
		acc2 := postableAccount(account.TypeRevenue, "4101", decimal.Zero)
		m.rows.On("AccountIDs", mock.Anything, (*time.Time)(nil), (*time.Time)(nil)).
			Return([]uuid.UUID{acc1.ID, acc2.ID}, nil)

		m.accounts.On("LockForUpdate", mock.Anything, acc1.ID).Return(acc1, nil)
		m.accounts.On("LockForUpdate", mock.Anything, acc2.ID).Return(acc2, nil)
		m.rows.On("History", mock.Anything, mock.Anything).Return([]*ledger.Row{}, nil)
		m.accounts.On("UpdateTotals", mock.Anything, mock.Anything).Return(nil)

		count, err := engine.RecomputeAll(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		m.accounts.AssertNumberOfCalls(t, "UpdateTotals", 2)
	})

	t.Run("no accounts in window", func(t *testing.T) {
		engine, m := newTestEngine(t)

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
		m.rows.On("AccountIDs", mock.Anything, &from, &to).Return([]uuid.UUID{}, nil)

		count, err := engine.RecomputeAll(ctx, &from, &to)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestEngine_DeleteEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes rows and rebuilds affected accounts", func(t *testing.T) {
		engine, m := newTestEngine(t)

		kas := postableAccount(account.TypeAsset, "1101", decimal.Zero)
		revenue := postableAccount(account.TypeRevenue, "4101", decimal.Zero)
		entry := balancedEntry(kas.ID, revenue.ID, "100")

		m.entries.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
		m.rows.On("ByEntryID", mock.Anything, entry.ID).Return([]*ledger.Row{
			{ID: uuid.New(), AccountID: kas.ID},
			{ID: uuid.New(), AccountID: revenue.ID},
		}, nil)
		m.rows.On("DeleteByEntryID", mock.Anything, entry.ID).Return(int64(2), nil)
		m.entries.On("Delete", mock.Anything, entry.ID).Return(nil)

		m.accounts.On("LockForUpdate", mock.Anything, kas.ID).Return(kas, nil)
		m.accounts.On("LockForUpdate", mock.Anything, revenue.ID).Return(revenue, nil)
		m.rows.On("History", mock.Anything, mock.Anything).Return([]*ledger.Row{}, nil)
		m.accounts.On("UpdateTotals", mock.Anything, mock.Anything).Return(nil)

		err := engine.DeleteEntry(ctx, entry.ID)
		require.NoError(t, err)
		m.accounts.AssertNumberOfCalls(t, "UpdateTotals", 2)
	})

	t.Run("unknown entry", func(t *testing.T) {
		engine, m := newTestEngine(t)

		id := uuid.New()
		m.entries.On("GetByID", mock.Anything, id).Return(nil, journal.ErrEntryNotFound{EntryID: id})

		err := engine.DeleteEntry(ctx, id)
		assert.ErrorIs(t, err, journal.ErrEntryNotFound{EntryID: id})
		m.rows.AssertNotCalled(t, "DeleteByEntryID", mock.Anything, mock.Anything)
	})
}
