package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func (f *fixture) template(t *testing.T, rt core.RecurringTemplate) core.RecurringTemplate {
	t.Helper()
	created, err := f.ledger.Recurring.Create(context.Background(), rt)
	require.NoError(t, err)
	return created
}

func TestRun_MonthlyCatchUpClampsEndOfMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc := f.account(t, testUser, 500000)
	rent := f.category(t, testUser, "Rent")
	b := f.budget(t, testUser, rent.ID, 1000000, core.NewDate(2025, 1, 1), core.NewDate(2025, 12, 31))
	rt := f.template(t, core.RecurringTemplate{
		UserID:     testUser,
		AccountID:  acc.ID,
		CategoryID: &rent.ID,
		Kind:       core.Expense,
		Amount:     core.Cents(95000),
		Note:       "rent",
		Frequency:  core.Monthly,
		StartDate:  core.NewDate(2025, 1, 31),
	})

	report, err := f.ledger.Processor.Run(ctx, RunOptions{Today: core.NewDate(2025, 4, 30)})
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 4, report.Emitted)
	require.Len(t, report.Templates, 1)

	want := []core.Date{core.NewDate(2025, 1, 31), core.NewDate(2025, 2, 28), core.NewDate(2025, 3, 31), core.NewDate(2025, 4, 30)}
	got := report.Templates[0].Dates
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, got[i].Equal(want[i]), "occurrence %d = %s, want %s", i, got[i], want[i])
	}

	assert.Equal(t, int64(500000-4*95000), f.balance(t, testUser, acc.ID))
	assert.Equal(t, int64(4*95000), f.expense(t, testUser, b.ID))

	stored, err := f.ledger.Recurring.Get(ctx, testUser, rt.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastProcessedDate.Equal(core.NewDate(2025, 4, 30)))

	txs, err := f.ledger.Transactions.List(ctx, testUser, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 4)
	for _, tx := range txs {
		require.NotNil(t, tx.RecurringID)
		assert.Equal(t, rt.ID, *tx.RecurringID)
		assert.Equal(t, "rent", tx.Note)
	}
	f.requireConsistent(t)
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc := f.account(t, testUser, 0)
	f.template(t, core.RecurringTemplate{
		UserID: testUser, AccountID: acc.ID, Kind: core.Income, Amount: core.Cents(100),
		Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1),
	})

	today := core.NewDate(2025, 1, 10)
	first, err := f.ledger.Processor.Run(ctx, RunOptions{Today: today})
	require.NoError(t, err)
	assert.Equal(t, 10, first.Emitted)

	second, err := f.ledger.Processor.Run(ctx, RunOptions{Today: today})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Emitted)
	assert.Equal(t, 1, second.Processed)
	assert.Empty(t, second.Templates[0].Dates)
	assert.Equal(t, int64(1000), f.balance(t, testUser, acc.ID))

	third, err := f.ledger.Processor.Run(ctx, RunOptions{Today: core.NewDate(2025, 1, 12)})
	require.NoError(t, err)
	assert.Equal(t, 2, third.Emitted)
	f.requireConsistent(t)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc := f.account(t, testUser, 0)
	rt := f.template(t, core.RecurringTemplate{
		UserID: testUser, AccountID: acc.ID, Kind: core.Expense, Amount: core.Cents(100),
		Frequency: core.Weekly, StartDate: core.NewDate(2025, 1, 1),
	})

	report, err := f.ledger.Processor.Run(ctx, RunOptions{Today: core.NewDate(2025, 1, 21), DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 0, report.Emitted)
	require.Len(t, report.Templates, 1)
	assert.Len(t, report.Templates[0].Dates, 3)

	assert.Equal(t, int64(0), f.balance(t, testUser, acc.ID))
	stored, err := f.ledger.Recurring.Get(ctx, testUser, rt.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastProcessedDate.IsZero())
	assert.Empty(t, f.publisher.types())
}

func TestRun_SkipsInactiveTemplates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc := f.account(t, testUser, 0)
	f.template(t, core.RecurringTemplate{
		UserID: testUser, AccountID: acc.ID, Kind: core.Expense, Amount: core.Cents(100),
		Frequency: core.Monthly, StartDate: core.NewDate(2025, 6, 1),
	})
	f.template(t, core.RecurringTemplate{
		UserID: testUser, AccountID: acc.ID, Kind: core.Expense, Amount: core.Cents(100),
		Frequency: core.Monthly, StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 12, 31),
	})

	report, err := f.ledger.Processor.Run(ctx, RunOptions{Today: core.NewDate(2025, 3, 1)})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.Emitted)
	for _, res := range report.Templates {
		assert.Equal(t, StatusSkipped, res.Status)
	}
}

func TestRun_EndDateBoundsCatchUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc := f.account(t, testUser, 0)
	f.template(t, core.RecurringTemplate{
		UserID: testUser, AccountID: acc.ID, Kind: core.Income, Amount: core.Cents(100),
		Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1), EndDate: core.NewDate(2025, 1, 5),
	})

	report, err := f.ledger.Processor.Run(ctx, RunOptions{Today: core.NewDate(2025, 1, 5)})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Emitted)
}

func TestRun_FailureIsIsolatedPerTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	full := f.account(t, testUser, core.MaxCents-150)
	ok := f.account(t, testUser, 0)

	// the second occurrence overflows the account, so the whole template rolls back
	broken := f.template(t, core.RecurringTemplate{
		UserID: testUser, AccountID: full.ID, Kind: core.Income, Amount: core.Cents(100),
		Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1),
	})
	healthy := f.template(t, core.RecurringTemplate{
		UserID: testUser, AccountID: ok.ID, Kind: core.Income, Amount: core.Cents(100),
		Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1),
	})

	report, err := f.ledger.Processor.Run(ctx, RunOptions{Today: core.NewDate(2025, 1, 3)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 3, report.Emitted)

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, broken.ID, failures[0].TemplateID)
	assert.NotEmpty(t, failures[0].Error)
	assert.Empty(t, failures[0].Dates)

	assert.Equal(t, core.MaxCents-150, f.balance(t, testUser, full.ID))
	assert.Equal(t, int64(300), f.balance(t, testUser, ok.ID))

	stored, err := f.ledger.Recurring.Get(ctx, testUser, broken.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastProcessedDate.IsZero(), "failed template keeps its watermark")

	stored, err = f.ledger.Recurring.Get(ctx, testUser, healthy.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastProcessedDate.Equal(core.NewDate(2025, 1, 3)))
	f.requireConsistent(t)
}

func TestRun_ScopedToUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	mine := f.account(t, testUser, 0)
	theirs := f.account(t, "u2", 0)
	for _, acc := range []core.Account{mine, theirs} {
		f.template(t, core.RecurringTemplate{
			UserID: acc.UserID, AccountID: acc.ID, Kind: core.Income, Amount: core.Cents(100),
			Frequency: core.Yearly, StartDate: core.NewDate(2025, 1, 1),
		})
	}

	report, err := f.ledger.Processor.Run(ctx, RunOptions{Today: core.NewDate(2025, 1, 1), UserID: testUser})
	require.NoError(t, err)
	require.Len(t, report.Templates, 1)
	assert.Equal(t, testUser, report.Templates[0].UserID)
	assert.Equal(t, int64(0), f.balance(t, "u2", theirs.ID))
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, testUser, 0)
	f.template(t, core.RecurringTemplate{
		UserID: testUser, AccountID: acc.ID, Kind: core.Income, Amount: core.Cents(100),
		Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.ledger.Processor.Run(ctx, RunOptions{Today: core.NewDate(2025, 1, 2)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), f.balance(t, testUser, acc.ID))
}

func TestRecurringService_UpdateKeepsWatermark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc := f.account(t, testUser, 0)
	rt := f.template(t, core.RecurringTemplate{
		UserID: testUser, AccountID: acc.ID, Amount: core.Cents(100),
		Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1),
	})
	assert.Equal(t, core.Expense, rt.Kind, "kind defaults to expense")

	_, err := f.ledger.Processor.Run(ctx, RunOptions{Today: core.NewDate(2025, 1, 2)})
	require.NoError(t, err)

	updated, err := f.ledger.Recurring.Update(ctx, testUser, rt.ID, RecurringPatch{Amount: ptr(core.Cents(250))})
	require.NoError(t, err)
	assert.Equal(t, int64(250), updated.Amount.Cents)
	assert.True(t, updated.LastProcessedDate.Equal(core.NewDate(2025, 1, 2)))

	_, err = f.ledger.Recurring.Update(ctx, testUser, rt.ID, RecurringPatch{Frequency: ptr(core.Frequency("hourly"))})
	assert.ErrorIs(t, err, core.ErrValidation)

	require.NoError(t, f.ledger.Recurring.Delete(ctx, testUser, rt.ID))
	txs, err := f.ledger.Transactions.List(ctx, testUser, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 2, "materialized transactions outlive their template")
	assert.Nil(t, txs[0].RecurringID)
}
