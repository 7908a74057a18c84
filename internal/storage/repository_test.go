package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
}

func TestAdjustAccountBalance(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()

	acc, err := q.CreateAccount(ctx, CreateAccountParams{UserID: "u1", Name: "Checking", Type: "current", OpeningBalanceCents: 100000})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), acc.BalanceCents)

	bal, err := q.AdjustAccountBalance(ctx, AdjustAccountBalanceParams{DeltaCents: -5000, ID: acc.ID, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(95000), bal)

	_, err = q.AdjustAccountBalance(ctx, AdjustAccountBalanceParams{DeltaCents: 1, ID: acc.ID, UserID: "u2"})
	assert.True(t, IsNoRows(err), "foreign user must not match: %v", err)
}

func TestBalanceCheckConstraint(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()

	acc, err := q.CreateAccount(ctx, CreateAccountParams{UserID: "u1", Name: "Big", Type: "savings", OpeningBalanceCents: 999999999999})
	require.NoError(t, err)

	_, err = q.AdjustAccountBalance(ctx, AdjustAccountBalanceParams{DeltaCents: 1, ID: acc.ID, UserID: "u1"})
	assert.Error(t, err)
}

func TestQualifyingBudgets(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()

	cat, err := q.CreateCategory(ctx, CreateCategoryParams{UserID: "u1", Name: "Food", Kind: "expense", Color: "#000000", Icon: "category"})
	require.NoError(t, err)

	march, err := q.CreateBudget(ctx, CreateBudgetParams{UserID: "u1", CategoryID: cat.ID, AmountCents: 50000, StartDate: "2025-03-01", EndDate: "2025-03-31"})
	require.NoError(t, err)
	quarter, err := q.CreateBudget(ctx, CreateBudgetParams{UserID: "u1", CategoryID: cat.ID, AmountCents: 150000, StartDate: "2025-01-01", EndDate: "2025-03-31"})
	require.NoError(t, err)

	got, err := q.ListQualifyingBudgets(ctx, ListQualifyingBudgetsParams{UserID: "u1", CategoryID: cat.ID, Date: "2025-03-31"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, march.ID, got[0].ID)
	assert.Equal(t, quarter.ID, got[1].ID)

	got, err = q.ListQualifyingBudgets(ctx, ListQualifyingBudgetsParams{UserID: "u1", CategoryID: cat.ID, Date: "2025-02-15"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, quarter.ID, got[0].ID)

	got, err = q.ListQualifyingBudgets(ctx, ListQualifyingBudgetsParams{UserID: "u1", CategoryID: cat.ID, Date: "2025-04-01"})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = q.AdjustBudgetExpense(ctx, AdjustBudgetExpenseParams{DeltaCents: -1, ID: march.ID, UserID: "u1"})
	assert.Error(t, err, "current expense cannot go negative")
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	acc, err := repo.Queries().CreateAccount(ctx, CreateAccountParams{UserID: "u1", Name: "Cash", Type: "cash"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.InTx(ctx, func(q *Queries) error {
		if _, err := q.AdjustAccountBalance(ctx, AdjustAccountBalanceParams{DeltaCents: 500, ID: acc.ID, UserID: "u1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.Queries().GetAccount(ctx, GetAccountParams{ID: acc.ID, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.BalanceCents)
}

func TestWatermarkGuard(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()

	acc, err := q.CreateAccount(ctx, CreateAccountParams{UserID: "u1", Name: "Cash", Type: "cash"})
	require.NoError(t, err)
	rt, err := q.CreateRecurring(ctx, CreateRecurringParams{
		UserID: "u1", AccountID: acc.ID, Kind: "expense", AmountCents: 1000,
		Frequency: "monthly", StartDate: "2025-01-31",
	})
	require.NoError(t, err)

	n, err := q.AdvanceRecurringWatermark(ctx, AdvanceRecurringWatermarkParams{LastProcessedDate: "2025-04-30", ID: rt.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// A second writer that read the old (null) watermark must not win.
	n, err = q.AdvanceRecurringWatermark(ctx, AdvanceRecurringWatermarkParams{LastProcessedDate: "2025-05-31", ID: rt.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = q.AdvanceRecurringWatermark(ctx, AdvanceRecurringWatermarkParams{
		LastProcessedDate: "2025-05-31", ID: rt.ID,
		Previous: sql.NullString{String: "2025-04-30", Valid: true},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAccountDeleteCascades(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()

	acc, err := q.CreateAccount(ctx, CreateAccountParams{UserID: "u1", Name: "Cash", Type: "cash"})
	require.NoError(t, err)
	_, err = q.CreateTransaction(ctx, CreateTransactionParams{UserID: "u1", AccountID: acc.ID, Kind: "income", AmountCents: 100, Date: "2025-01-01"})
	require.NoError(t, err)

	n, err := q.DeleteAccount(ctx, DeleteAccountParams{ID: acc.ID, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	txs, err := q.ListAccountTransactions(ctx, ListAccountTransactionsParams{AccountID: acc.ID, UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, txs)
}
