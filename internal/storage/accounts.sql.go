package storage

import (
	"context"
)

const accountColumns = `id, user_id, name, type, opening_balance_cents, balance_cents, created_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (Account, error) {
	var i Account
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Type,
		&i.OpeningBalanceCents,
		&i.BalanceCents,
		&i.CreatedAt,
	)
	return i, err
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (user_id, name, type, opening_balance_cents, balance_cents)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + accountColumns

type CreateAccountParams struct {
	UserID              string
	Name                string
	Type                string
	OpeningBalanceCents int64
}

// CreateAccount starts the balance at the opening balance.
func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRowContext(ctx, createAccount,
		arg.UserID,
		arg.Name,
		arg.Type,
		arg.OpeningBalanceCents,
		arg.OpeningBalanceCents,
	)
	return scanAccount(row)
}

const getAccount = `-- name: GetAccount :one
SELECT ` + accountColumns + ` FROM accounts
WHERE id = ? AND user_id = ?`

type GetAccountParams struct {
	ID     int64
	UserID string
}

func (q *Queries) GetAccount(ctx context.Context, arg GetAccountParams) (Account, error) {
	row := q.db.QueryRowContext(ctx, getAccount, arg.ID, arg.UserID)
	return scanAccount(row)
}

const listAccounts = `-- name: ListAccounts :many
SELECT ` + accountColumns + ` FROM accounts
WHERE user_id = ?
ORDER BY name, id`

func (q *Queries) ListAccounts(ctx context.Context, userID string) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		i, err := scanAccount(rows)
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

const updateAccount = `-- name: UpdateAccount :one
UPDATE accounts SET name = ?, type = ?
WHERE id = ? AND user_id = ?
RETURNING ` + accountColumns

type UpdateAccountParams struct {
	Name   string
	Type   string
	ID     int64
	UserID string
}

func (q *Queries) UpdateAccount(ctx context.Context, arg UpdateAccountParams) (Account, error) {
	row := q.db.QueryRowContext(ctx, updateAccount, arg.Name, arg.Type, arg.ID, arg.UserID)
	return scanAccount(row)
}

const deleteAccount = `-- name: DeleteAccount :execrows
DELETE FROM accounts WHERE id = ? AND user_id = ?`

type DeleteAccountParams struct {
	ID     int64
	UserID string
}

func (q *Queries) DeleteAccount(ctx context.Context, arg DeleteAccountParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAccount, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const adjustAccountBalance = `-- name: AdjustAccountBalance :one
UPDATE accounts SET balance_cents = balance_cents + ?
WHERE id = ? AND user_id = ?
RETURNING balance_cents`

type AdjustAccountBalanceParams struct {
	DeltaCents int64
	ID         int64
	UserID     string
}

// AdjustAccountBalance applies a signed delta in place and returns the new
// balance. sql.ErrNoRows means the account does not exist for the user.
func (q *Queries) AdjustAccountBalance(ctx context.Context, arg AdjustAccountBalanceParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, adjustAccountBalance, arg.DeltaCents, arg.ID, arg.UserID)
	var balance int64
	err := row.Scan(&balance)
	return balance, err
}

const auditAccountBalances = `-- name: AuditAccountBalances :many
SELECT a.id, a.user_id, a.balance_cents,
       a.opening_balance_cents + COALESCE(SUM(
           CASE t.kind WHEN 'income' THEN t.amount_cents ELSE -t.amount_cents END
       ), 0) AS recomputed_cents
FROM accounts a
LEFT JOIN transactions t ON t.account_id = a.id
WHERE (? = '' OR a.user_id = ?)
GROUP BY a.id
ORDER BY a.id`

type AuditAccountBalancesRow struct {
	ID              int64
	UserID          string
	BalanceCents    int64
	RecomputedCents int64
}

func (q *Queries) AuditAccountBalances(ctx context.Context, userID string) ([]AuditAccountBalancesRow, error) {
	rows, err := q.db.QueryContext(ctx, auditAccountBalances, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditAccountBalancesRow
	for rows.Next() {
		var i AuditAccountBalancesRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.BalanceCents, &i.RecomputedCents); err != nil {
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
