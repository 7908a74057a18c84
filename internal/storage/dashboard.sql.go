package storage

import (
	"context"
	"database/sql"
)

const sumByKind = `-- name: SumByKind :many
SELECT kind, COALESCE(SUM(amount_cents), 0) AS total_cents
FROM transactions
WHERE user_id = ?
  AND (? IS NULL OR account_id = ?)
  AND (? IS NULL OR date >= ?)
  AND (? IS NULL OR date <= ?)
GROUP BY kind`

type DashboardFilter struct {
	UserID    string
	AccountID sql.NullInt64
	FromDate  sql.NullString
	ToDate    sql.NullString
}

func (f DashboardFilter) args() []interface{} {
	return []interface{}{
		f.UserID,
		f.AccountID, f.AccountID,
		f.FromDate, f.FromDate,
		f.ToDate, f.ToDate,
	}
}

type SumByKindRow struct {
	Kind       string
	TotalCents int64
}

func (q *Queries) SumByKind(ctx context.Context, arg DashboardFilter) ([]SumByKindRow, error) {
	rows, err := q.db.QueryContext(ctx, sumByKind, arg.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SumByKindRow
	for rows.Next() {
		var i SumByKindRow
		if err := rows.Scan(&i.Kind, &i.TotalCents); err != nil {
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

const categoryBreakdown = `-- name: CategoryBreakdown :many
SELECT t.category_id, COALESCE(c.name, 'Uncategorized') AS name, t.kind,
       SUM(t.amount_cents) AS total_cents, COUNT(*) AS tx_count
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
WHERE t.user_id = ?
  AND (? IS NULL OR t.account_id = ?)
  AND (? IS NULL OR t.date >= ?)
  AND (? IS NULL OR t.date <= ?)
GROUP BY t.category_id, t.kind
ORDER BY t.kind, total_cents DESC`

type CategoryBreakdownRow struct {
	CategoryID sql.NullInt64
	Name       string
	Kind       string
	TotalCents int64
	TxCount    int64
}

func (q *Queries) CategoryBreakdown(ctx context.Context, arg DashboardFilter) ([]CategoryBreakdownRow, error) {
	rows, err := q.db.QueryContext(ctx, categoryBreakdown, arg.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryBreakdownRow
	for rows.Next() {
		var i CategoryBreakdownRow
		if err := rows.Scan(&i.CategoryID, &i.Name, &i.Kind, &i.TotalCents, &i.TxCount); err != nil {
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

const monthlyTotals = `-- name: MonthlyTotals :many
SELECT substr(date, 1, 7) AS month,
       COALESCE(SUM(CASE kind WHEN 'income' THEN amount_cents ELSE 0 END), 0) AS income_cents,
       COALESCE(SUM(CASE kind WHEN 'expense' THEN amount_cents ELSE 0 END), 0) AS expense_cents
FROM transactions
WHERE user_id = ?
  AND (? IS NULL OR account_id = ?)
  AND (? IS NULL OR date >= ?)
  AND (? IS NULL OR date <= ?)
GROUP BY month
ORDER BY month`

type MonthlyTotalsRow struct {
	Month        string
	IncomeCents  int64
	ExpenseCents int64
}

func (q *Queries) MonthlyTotals(ctx context.Context, arg DashboardFilter) ([]MonthlyTotalsRow, error) {
	rows, err := q.db.QueryContext(ctx, monthlyTotals, arg.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthlyTotalsRow
	for rows.Next() {
		var i MonthlyTotalsRow
		if err := rows.Scan(&i.Month, &i.IncomeCents, &i.ExpenseCents); err != nil {
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

const budgetStatus = `-- name: BudgetStatus :many
SELECT b.id, b.category_id, c.name, b.amount_cents, b.current_expense_cents, b.start_date, b.end_date
FROM budgets b
JOIN categories c ON c.id = b.category_id
WHERE b.user_id = ?
  AND (? IS NULL OR b.end_date >= ?)
ORDER BY b.start_date DESC, b.id`

type BudgetStatusParams struct {
	UserID   string
	ActiveOn sql.NullString
}

type BudgetStatusRow struct {
	ID                  int64
	CategoryID          int64
	CategoryName        string
	AmountCents         int64
	CurrentExpenseCents int64
	StartDate           string
	EndDate             string
}

func (q *Queries) BudgetStatus(ctx context.Context, arg BudgetStatusParams) ([]BudgetStatusRow, error) {
	rows, err := q.db.QueryContext(ctx, budgetStatus, arg.UserID, arg.ActiveOn, arg.ActiveOn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetStatusRow
	for rows.Next() {
		var i BudgetStatusRow
		if err := rows.Scan(
			&i.ID,
			&i.CategoryID,
			&i.CategoryName,
			&i.AmountCents,
			&i.CurrentExpenseCents,
			&i.StartDate,
			&i.EndDate,
		); err != nil {
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

const listLedgerEntries = `-- name: ListLedgerEntries :many
SELECT t.id, t.date, t.kind, t.amount_cents, t.category_id,
       COALESCE(c.name, 'Uncategorized') AS category_name, t.note
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
WHERE t.user_id = ?
  AND (? IS NULL OR t.account_id = ?)
  AND (? IS NULL OR t.date >= ?)
  AND (? IS NULL OR t.date <= ?)
ORDER BY t.date, t.id`

type LedgerEntryRow struct {
	ID           int64
	Date         string
	Kind         string
	AmountCents  int64
	CategoryID   sql.NullInt64
	CategoryName string
	Note         string
}

func (q *Queries) ListLedgerEntries(ctx context.Context, arg DashboardFilter) ([]LedgerEntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listLedgerEntries, arg.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerEntryRow
	for rows.Next() {
		var i LedgerEntryRow
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Kind,
			&i.AmountCents,
			&i.CategoryID,
			&i.CategoryName,
			&i.Note,
		); err != nil {
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
