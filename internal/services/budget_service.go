package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// BudgetService manages budgets. current_expense is never taken from the
// caller: it is recomputed from the qualifying transactions whenever the
// budget's category or period is set.
type BudgetService struct {
	storage *storage.SQLiteRepository
	feed    *ChangeFeed
}

func NewBudgetService(storage *storage.SQLiteRepository, feed *ChangeFeed) *BudgetService {
	return &BudgetService{storage: storage, feed: feed}
}

type BudgetPatch struct {
	CategoryID *int64
	Limit      *core.Money
	StartDate  *core.Date
	EndDate    *core.Date
}

func (p BudgetPatch) Apply(b core.Budget) core.Budget {
	if p.CategoryID != nil {
		b.CategoryID = *p.CategoryID
	}
	if p.Limit != nil {
		b.Limit = *p.Limit
	}
	if p.StartDate != nil {
		b.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		b.EndDate = *p.EndDate
	}
	return b
}

func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	var created core.Budget
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		if err := requireCategory(ctx, q, b.UserID, b.CategoryID); err != nil {
			return err
		}
		expense, err := qualifyingSum(ctx, q, b)
		if err != nil {
			return err
		}
		row, err := q.CreateBudget(ctx, storage.CreateBudgetParams{
			UserID:              string(b.UserID),
			CategoryID:          b.CategoryID,
			AmountCents:         b.Limit.Cents,
			CurrentExpenseCents: expense,
			StartDate:           b.StartDate.String(),
			EndDate:             b.EndDate.String(),
		})
		if err != nil {
			return fmt.Errorf("insert budget: %w", err)
		}
		created = row.ToCore()
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget created",
		log.FieldBudgetID, created.ID,
		log.FieldUserID, created.UserID,
		log.FieldCategoryID, created.CategoryID,
		"current_expense_cents", created.CurrentExpense.Cents)
	s.feed.notify(ctx, created.UserID)
	return created, nil
}

func (s *BudgetService) Update(ctx context.Context, user core.UserID, id int64, patch BudgetPatch) (core.Budget, error) {
	var updated core.Budget
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		current, err := getBudget(ctx, q, user, id)
		if err != nil {
			return err
		}
		next := patch.Apply(current)
		if err := next.Validate(); err != nil {
			return err
		}
		if next.CategoryID != current.CategoryID {
			if err := requireCategory(ctx, q, user, next.CategoryID); err != nil {
				return err
			}
		}
		expense, err := qualifyingSum(ctx, q, next)
		if err != nil {
			return err
		}
		row, err := q.UpdateBudget(ctx, storage.UpdateBudgetParams{
			CategoryID:          next.CategoryID,
			AmountCents:         next.Limit.Cents,
			CurrentExpenseCents: expense,
			StartDate:           next.StartDate.String(),
			EndDate:             next.EndDate.String(),
			ID:                  id,
			UserID:              string(user),
		})
		if err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		updated = row.ToCore()
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget updated", log.FieldBudgetID, id, log.FieldUserID, user)
	s.feed.notify(ctx, user)
	return updated, nil
}

// Recalculate rebuilds current_expense from the transactions table.
func (s *BudgetService) Recalculate(ctx context.Context, user core.UserID, id int64) (core.Budget, error) {
	var (
		before core.Money
		after  core.Budget
	)
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		current, err := getBudget(ctx, q, user, id)
		if err != nil {
			return err
		}
		before = current.CurrentExpense
		expense, err := qualifyingSum(ctx, q, current)
		if err != nil {
			return err
		}
		row, err := q.SetBudgetExpense(ctx, storage.SetBudgetExpenseParams{
			CurrentExpenseCents: expense,
			ID:                  id,
			UserID:              string(user),
		})
		if err != nil {
			return fmt.Errorf("set budget expense: %w", err)
		}
		after = row.ToCore()
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}

	if before != after.CurrentExpense {
		slog.WarnContext(ctx, "Budget expense drift repaired",
			log.FieldOperation, log.OpRecalculate,
			log.FieldBudgetID, id,
			log.FieldUserID, user,
			"cached_cents", before.Cents,
			"recomputed_cents", after.CurrentExpense.Cents)
		s.feed.notify(ctx, user)
	}
	return after, nil
}

func (s *BudgetService) Delete(ctx context.Context, user core.UserID, id int64) error {
	n, err := s.storage.Queries().DeleteBudget(ctx, storage.DeleteBudgetParams{ID: id, UserID: string(user)})
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n == 0 {
		return core.NotFound("budget", id)
	}
	slog.InfoContext(ctx, "Budget deleted", log.FieldBudgetID, id, log.FieldUserID, user)
	s.feed.notify(ctx, user)
	return nil
}

func (s *BudgetService) Get(ctx context.Context, user core.UserID, id int64) (core.Budget, error) {
	return getBudget(ctx, s.storage.Queries(), user, id)
}

func (s *BudgetService) List(ctx context.Context, user core.UserID) ([]core.Budget, error) {
	rows, err := s.storage.Queries().ListBudgets(ctx, string(user))
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToCore())
	}
	return out, nil
}

func getBudget(ctx context.Context, q *storage.Queries, user core.UserID, id int64) (core.Budget, error) {
	row, err := q.GetBudget(ctx, storage.GetBudgetParams{ID: id, UserID: string(user)})
	if err != nil {
		if storage.IsNoRows(err) {
			return core.Budget{}, core.NotFound("budget", id)
		}
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return row.ToCore(), nil
}

func requireCategory(ctx context.Context, q *storage.Queries, user core.UserID, id int64) error {
	if _, err := q.GetCategory(ctx, storage.GetCategoryParams{ID: id, UserID: string(user)}); err != nil {
		if storage.IsNoRows(err) {
			return core.Invalid("category_id", core.ErrUnknownReference)
		}
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}

func qualifyingSum(ctx context.Context, q *storage.Queries, b core.Budget) (int64, error) {
	total, err := q.SumQualifyingExpenses(ctx, storage.SumQualifyingExpensesParams{
		UserID:     string(b.UserID),
		CategoryID: b.CategoryID,
		StartDate:  b.StartDate.String(),
		EndDate:    b.EndDate.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("sum qualifying expenses: %w", err)
	}
	if total > core.MaxCents {
		return 0, core.Invalid("current_expense", core.ErrAmountOutOfRange)
	}
	return total, nil
}
