package storage

import (
	"context"
	"database/sql"
)

const budgetColumns = `id, user_id, category_id, amount_cents, current_expense_cents, start_date, end_date, created_at`

func scanBudget(row interface{ Scan(...interface{}) error }) (Budget, error) {
	var i Budget
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.CategoryID,
		&i.AmountCents,
		&i.CurrentExpenseCents,
		&i.StartDate,
		&i.EndDate,
		&i.CreatedAt,
	)
	return i, err
}

func collectBudgets(rows *sql.Rows) ([]Budget, error) {
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		i, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createBudget = `-- name: CreateBudget :one
INSERT INTO budgets (user_id, category_id, amount_cents, current_expense_cents, start_date, end_date)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + budgetColumns

type CreateBudgetParams struct {
	UserID              string
	CategoryID          int64
	AmountCents         int64
	CurrentExpenseCents int64
	StartDate           string
	EndDate             string
}

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, createBudget,
		arg.UserID,
		arg.CategoryID,
		arg.AmountCents,
		arg.CurrentExpenseCents,
		arg.StartDate,
		arg.EndDate,
	)
	return scanBudget(row)
}

const getBudget = `-- name: GetBudget :one
SELECT ` + budgetColumns + ` FROM budgets
WHERE id = ? AND user_id = ?`

type GetBudgetParams struct {
	ID     int64
	UserID string
}

func (q *Queries) GetBudget(ctx context.Context, arg GetBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, getBudget, arg.ID, arg.UserID)
	return scanBudget(row)
}

const listBudgets = `-- name: ListBudgets :many
SELECT ` + budgetColumns + ` FROM budgets
WHERE user_id = ?
ORDER BY start_date DESC, id`

func (q *Queries) ListBudgets(ctx context.Context, userID string) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, userID)
	if err != nil {
		return nil, err
	}
	return collectBudgets(rows)
}

const updateBudget = `-- name: UpdateBudget :one
UPDATE budgets
SET category_id = ?, amount_cents = ?, current_expense_cents = ?, start_date = ?, end_date = ?
WHERE id = ? AND user_id = ?
RETURNING ` + budgetColumns

type UpdateBudgetParams struct {
	CategoryID          int64
	AmountCents         int64
	CurrentExpenseCents int64
	StartDate           string
	EndDate             string
	ID                  int64
	UserID              string
}

func (q *Queries) UpdateBudget(ctx context.Context, arg UpdateBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, updateBudget,
		arg.CategoryID,
		arg.AmountCents,
		arg.CurrentExpenseCents,
		arg.StartDate,
		arg.EndDate,
		arg.ID,
		arg.UserID,
	)
	return scanBudget(row)
}

const deleteBudget = `-- name: DeleteBudget :execrows
DELETE FROM budgets WHERE id = ? AND user_id = ?`

type DeleteBudgetParams struct {
	ID     int64
	UserID string
}

func (q *Queries) DeleteBudget(ctx context.Context, arg DeleteBudgetParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBudget, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listQualifyingBudgets = `-- name: ListQualifyingBudgets :many
SELECT ` + budgetColumns + ` FROM budgets
WHERE user_id = ? AND category_id = ? AND start_date <= ? AND end_date >= ?
ORDER BY id`

type ListQualifyingBudgetsParams struct {
	UserID     string
	CategoryID int64
	Date       string
}

// ListQualifyingBudgets returns every budget of the user on the category
// whose inclusive period contains Date. Overlapping periods all match.
func (q *Queries) ListQualifyingBudgets(ctx context.Context, arg ListQualifyingBudgetsParams) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listQualifyingBudgets, arg.UserID, arg.CategoryID, arg.Date, arg.Date)
	if err != nil {
		return nil, err
	}
	return collectBudgets(rows)
}

const adjustBudgetExpense = `-- name: AdjustBudgetExpense :one
UPDATE budgets SET current_expense_cents = current_expense_cents + ?
WHERE id = ? AND user_id = ?
RETURNING current_expense_cents`

type AdjustBudgetExpenseParams struct {
	DeltaCents int64
	ID         int64
	UserID     string
}

func (q *Queries) AdjustBudgetExpense(ctx context.Context, arg AdjustBudgetExpenseParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, adjustBudgetExpense, arg.DeltaCents, arg.ID, arg.UserID)
	var expense int64
	err := row.Scan(&expense)
	return expense, err
}

const setBudgetExpense = `-- name: SetBudgetExpense :one
UPDATE budgets SET current_expense_cents = ?
WHERE id = ? AND user_id = ?
RETURNING ` + budgetColumns

type SetBudgetExpenseParams struct {
	CurrentExpenseCents int64
	ID                  int64
	UserID              string
}

func (q *Queries) SetBudgetExpense(ctx context.Context, arg SetBudgetExpenseParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, setBudgetExpense, arg.CurrentExpenseCents, arg.ID, arg.UserID)
	return scanBudget(row)
}

const auditBudgetExpenses = `-- name: AuditBudgetExpenses :many
SELECT b.id, b.user_id, b.current_expense_cents,
       (SELECT COALESCE(SUM(t.amount_cents), 0) FROM transactions t
        WHERE t.user_id = b.user_id AND t.category_id = b.category_id
          AND t.kind = 'expense' AND t.date >= b.start_date AND t.date <= b.end_date
       ) AS recomputed_cents
FROM budgets b
WHERE (? = '' OR b.user_id = ?)
ORDER BY b.id`

type AuditBudgetExpensesRow struct {
	ID                  int64
	UserID              string
	CurrentExpenseCents int64
	RecomputedCents     int64
}

func (q *Queries) AuditBudgetExpenses(ctx context.Context, userID string) ([]AuditBudgetExpensesRow, error) {
	rows, err := q.db.QueryContext(ctx, auditBudgetExpenses, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditBudgetExpensesRow
	for rows.Next() {
		var i AuditBudgetExpensesRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.CurrentExpenseCents, &i.RecomputedCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
