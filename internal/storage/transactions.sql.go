package storage

import (
	"context"
	"database/sql"
)

const transactionColumns = `id, user_id, account_id, category_id, kind, amount_cents, note, date, recurring_id, created_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.AccountID,
		&i.CategoryID,
		&i.Kind,
		&i.AmountCents,
		&i.Note,
		&i.Date,
		&i.RecurringID,
		&i.CreatedAt,
	)
	return i, err
}

func collectTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
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

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (user_id, account_id, category_id, kind, amount_cents, note, date, recurring_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	UserID      string
	AccountID   int64
	CategoryID  sql.NullInt64
	Kind        string
	AmountCents int64
	Note        string
	Date        string
	RecurringID sql.NullInt64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID,
		arg.AccountID,
		arg.CategoryID,
		arg.Kind,
		arg.AmountCents,
		arg.Note,
		arg.Date,
		arg.RecurringID,
	)
	return scanTransaction(row)
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + ` FROM transactions
WHERE id = ? AND user_id = ?`

type GetTransactionParams struct {
	ID     int64
	UserID string
}

func (q *Queries) GetTransaction(ctx context.Context, arg GetTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, arg.ID, arg.UserID)
	return scanTransaction(row)
}

const updateTransaction = `-- name: UpdateTransaction :one
UPDATE transactions
SET account_id = ?, category_id = ?, kind = ?, amount_cents = ?, note = ?, date = ?
WHERE id = ? AND user_id = ?
RETURNING ` + transactionColumns

type UpdateTransactionParams struct {
	AccountID   int64
	CategoryID  sql.NullInt64
	Kind        string
	AmountCents int64
	Note        string
	Date        string
	ID          int64
	UserID      string
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction,
		arg.AccountID,
		arg.CategoryID,
		arg.Kind,
		arg.AmountCents,
		arg.Note,
		arg.Date,
		arg.ID,
		arg.UserID,
	)
	return scanTransaction(row)
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ? AND user_id = ?`

type DeleteTransactionParams struct {
	ID     int64
	UserID string
}

func (q *Queries) DeleteTransaction(ctx context.Context, arg DeleteTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listTransactions = `-- name: ListTransactions :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = ?
  AND (? IS NULL OR account_id = ?)
  AND (? IS NULL OR category_id = ?)
  AND (? IS NULL OR kind = ?)
  AND (? IS NULL OR date >= ?)
  AND (? IS NULL OR date <= ?)
ORDER BY date DESC, id DESC
LIMIT ? OFFSET ?`

type ListTransactionsParams struct {
	UserID     string
	AccountID  sql.NullInt64
	CategoryID sql.NullInt64
	Kind       sql.NullString
	FromDate   sql.NullString
	ToDate     sql.NullString
	Limit      int64
	Offset     int64
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions,
		arg.UserID,
		arg.AccountID, arg.AccountID,
		arg.CategoryID, arg.CategoryID,
		arg.Kind, arg.Kind,
		arg.FromDate, arg.FromDate,
		arg.ToDate, arg.ToDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const listAccountTransactions = `-- name: ListAccountTransactions :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE account_id = ? AND user_id = ?
ORDER BY id`

type ListAccountTransactionsParams struct {
	AccountID int64
	UserID    string
}

func (q *Queries) ListAccountTransactions(ctx context.Context, arg ListAccountTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listAccountTransactions, arg.AccountID, arg.UserID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const listRecurringTransactions = `-- name: ListRecurringTransactions :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE recurring_id = ?
ORDER BY date, id`

func (q *Queries) ListRecurringTransactions(ctx context.Context, recurringID int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listRecurringTransactions, recurringID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const sumQualifyingExpenses = `-- name: SumQualifyingExpenses :one
SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
WHERE user_id = ? AND category_id = ? AND kind = 'expense'
  AND date >= ? AND date <= ?`

type SumQualifyingExpensesParams struct {
	UserID     string
	CategoryID int64
	StartDate  string
	EndDate    string
}

func (q *Queries) SumQualifyingExpenses(ctx context.Context, arg SumQualifyingExpensesParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumQualifyingExpenses, arg.UserID, arg.CategoryID, arg.StartDate, arg.EndDate)
	var total int64
	err := row.Scan(&total)
	return total, err
}
