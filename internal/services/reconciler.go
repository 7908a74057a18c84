package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// LedgerStore is the part of storage the reconciler writes through. It is
// always bound to the caller's open transaction.
type LedgerStore interface {
	AdjustAccountBalance(ctx context.Context, arg storage.AdjustAccountBalanceParams) (int64, error)
	ListQualifyingBudgets(ctx context.Context, arg storage.ListQualifyingBudgetsParams) ([]storage.Budget, error)
	AdjustBudgetExpense(ctx context.Context, arg storage.AdjustBudgetExpenseParams) (int64, error)
}

// Reconciler keeps Account.Balance and Budget.CurrentExpense equal to the
// net effect of the live transactions. It is the only writer of both.
type Reconciler struct{}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// OnCreate applies tx to its account and to every qualifying budget.
func (r *Reconciler) OnCreate(ctx context.Context, store LedgerStore, tx core.Transaction) error {
	if err := r.apply(ctx, store, tx, 1); err != nil {
		return &ReconciliationError{Op: "create", TransactionID: tx.ID, Err: err}
	}
	return nil
}

// OnUpdate fully reverses old, then fully applies next. The two sides may
// touch different accounts and budgets, so they are never netted.
func (r *Reconciler) OnUpdate(ctx context.Context, store LedgerStore, old, next core.Transaction) error {
	if err := r.apply(ctx, store, old, -1); err != nil {
		return &ReconciliationError{Op: "update", TransactionID: old.ID, Err: fmt.Errorf("reverse: %w", err)}
	}
	if err := r.apply(ctx, store, next, 1); err != nil {
		return &ReconciliationError{Op: "update", TransactionID: next.ID, Err: fmt.Errorf("apply: %w", err)}
	}
	return nil
}

// OnDelete reverses tx using its stored field values.
func (r *Reconciler) OnDelete(ctx context.Context, store LedgerStore, tx core.Transaction) error {
	if err := r.apply(ctx, store, tx, -1); err != nil {
		return &ReconciliationError{Op: "delete", TransactionID: tx.ID, Err: err}
	}
	return nil
}

// QualifyingBudgets returns every budget tx counts towards. Income and
// uncategorised transactions never qualify.
func (r *Reconciler) QualifyingBudgets(ctx context.Context, store LedgerStore, tx core.Transaction) ([]core.Budget, error) {
	if tx.Kind != core.Expense || tx.CategoryID == nil {
		return nil, nil
	}
	rows, err := store.ListQualifyingBudgets(ctx, storage.ListQualifyingBudgetsParams{
		UserID:     string(tx.UserID),
		CategoryID: *tx.CategoryID,
		Date:       tx.Date.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("list qualifying budgets: %w", err)
	}
	budgets := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		budgets = append(budgets, row.ToCore())
	}
	return budgets, nil
}

// apply adds sign times the effect of tx.
func (r *Reconciler) apply(ctx context.Context, store LedgerStore, tx core.Transaction, sign int64) error {
	delta := sign * tx.Signed().Cents
	balance, err := store.AdjustAccountBalance(ctx, storage.AdjustAccountBalanceParams{
		DeltaCents: delta,
		ID:         tx.AccountID,
		UserID:     string(tx.UserID),
	})
	if err != nil {
		if storage.IsNoRows(err) {
			return fmt.Errorf("account %d is missing", tx.AccountID)
		}
		return fmt.Errorf("adjust balance of account %d: %w", tx.AccountID, err)
	}
	if !core.Cents(balance).InRange() {
		return fmt.Errorf("balance of account %d: %w", tx.AccountID, core.ErrAmountOutOfRange)
	}

	budgets, err := r.QualifyingBudgets(ctx, store, tx)
	if err != nil {
		return err
	}
	for _, b := range budgets {
		expense, err := store.AdjustBudgetExpense(ctx, storage.AdjustBudgetExpenseParams{
			DeltaCents: sign * tx.Amount.Cents,
			ID:         b.ID,
			UserID:     string(tx.UserID),
		})
		if err != nil {
			return fmt.Errorf("adjust expense of budget %d: %w", b.ID, err)
		}
		if expense < 0 {
			return fmt.Errorf("expense of budget %d would become negative", b.ID)
		}
	}

	slog.DebugContext(ctx, "Ledger reconciled",
		log.FieldTransactionID, tx.ID,
		log.FieldAccountID, tx.AccountID,
		"delta_cents", delta,
		"balance_cents", balance,
		"budgets", len(budgets))
	return nil
}
