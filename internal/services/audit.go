package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// Auditor recomputes cached aggregates from the transactions and reports
// every one that disagrees. It never repairs anything; see
// BudgetService.Recalculate for that.
type Auditor struct {
	storage *storage.SQLiteRepository
}

func NewAuditor(storage *storage.SQLiteRepository) *Auditor {
	return &Auditor{storage: storage}
}

// Audit checks the accounts and budgets of user, or of every user when
// user is empty.
func (a *Auditor) Audit(ctx context.Context, user core.UserID) ([]core.AuditDrift, error) {
	q := a.storage.Queries()

	accounts, err := q.AuditAccountBalances(ctx, string(user))
	if err != nil {
		return nil, fmt.Errorf("audit account balances: %w", err)
	}
	budgets, err := q.AuditBudgetExpenses(ctx, string(user))
	if err != nil {
		return nil, fmt.Errorf("audit budget expenses: %w", err)
	}

	drifts := []core.AuditDrift{}
	for _, r := range accounts {
		if r.BalanceCents != r.RecomputedCents {
			drifts = append(drifts, core.AuditDrift{
				Entity:     "account",
				ID:         r.ID,
				UserID:     core.UserID(r.UserID),
				Cached:     core.Cents(r.BalanceCents),
				Recomputed: core.Cents(r.RecomputedCents),
			})
		}
	}
	for _, r := range budgets {
		if r.CurrentExpenseCents != r.RecomputedCents {
			drifts = append(drifts, core.AuditDrift{
				Entity:     "budget",
				ID:         r.ID,
				UserID:     core.UserID(r.UserID),
				Cached:     core.Cents(r.CurrentExpenseCents),
				Recomputed: core.Cents(r.RecomputedCents),
			})
		}
	}

	if len(drifts) > 0 {
		slog.WarnContext(ctx, "Ledger audit found drift",
			log.FieldOperation, log.OpAudit,
			log.FieldUserID, user,
			"drifts", len(drifts),
			"accounts_checked", len(accounts),
			"budgets_checked", len(budgets))
	} else {
		slog.DebugContext(ctx, "Ledger audit clean",
			log.FieldOperation, log.OpAudit,
			log.FieldUserID, user,
			"accounts_checked", len(accounts),
			"budgets_checked", len(budgets))
	}
	return drifts, nil
}
