package storage

import (
	"context"
	"database/sql"
)

const recurringColumns = `id, user_id, account_id, category_id, kind, amount_cents, note, frequency, start_date, end_date, last_processed_date, created_at`

func scanRecurring(row interface{ Scan(...interface{}) error }) (RecurringTransaction, error) {
	var i RecurringTransaction
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.AccountID,
		&i.CategoryID,
		&i.Kind,
		&i.AmountCents,
		&i.Note,
		&i.Frequency,
		&i.StartDate,
		&i.EndDate,
		&i.LastProcessedDate,
		&i.CreatedAt,
	)
	return i, err
}

func collectRecurring(rows *sql.Rows) ([]RecurringTransaction, error) {
	defer rows.Close()
	var items []RecurringTransaction
	for rows.Next() {
		i, err := scanRecurring(rows)
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

const createRecurring = `-- name: CreateRecurring :one
INSERT INTO recurring_transactions (user_id, account_id, category_id, kind, amount_cents, note, frequency, start_date, end_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + recurringColumns

type CreateRecurringParams struct {
	UserID      string
	AccountID   int64
	CategoryID  sql.NullInt64
	Kind        string
	AmountCents int64
	Note        string
	Frequency   string
	StartDate   string
	EndDate     sql.NullString
}

func (q *Queries) CreateRecurring(ctx context.Context, arg CreateRecurringParams) (RecurringTransaction, error) {
	row := q.db.QueryRowContext(ctx, createRecurring,
		arg.UserID,
		arg.AccountID,
		arg.CategoryID,
		arg.Kind,
		arg.AmountCents,
		arg.Note,
		arg.Frequency,
		arg.StartDate,
		arg.EndDate,
	)
	return scanRecurring(row)
}

const getRecurring = `-- name: GetRecurring :one
SELECT ` + recurringColumns + ` FROM recurring_transactions
WHERE id = ? AND user_id = ?`

type GetRecurringParams struct {
	ID     int64
	UserID string
}

func (q *Queries) GetRecurring(ctx context.Context, arg GetRecurringParams) (RecurringTransaction, error) {
	row := q.db.QueryRowContext(ctx, getRecurring, arg.ID, arg.UserID)
	return scanRecurring(row)
}

const getRecurringByID = `-- name: GetRecurringByID :one
SELECT ` + recurringColumns + ` FROM recurring_transactions
WHERE id = ?`

// GetRecurringByID is unscoped and only used by the materializer, which
// already holds the owning user from the template listing.
func (q *Queries) GetRecurringByID(ctx context.Context, id int64) (RecurringTransaction, error) {
	row := q.db.QueryRowContext(ctx, getRecurringByID, id)
	return scanRecurring(row)
}

const listRecurring = `-- name: ListRecurring :many
SELECT ` + recurringColumns + ` FROM recurring_transactions
WHERE (? = '' OR user_id = ?)
ORDER BY id`

// ListRecurring returns every template of userID, or of all users when
// userID is empty.
func (q *Queries) ListRecurring(ctx context.Context, userID string) ([]RecurringTransaction, error) {
	rows, err := q.db.QueryContext(ctx, listRecurring, userID, userID)
	if err != nil {
		return nil, err
	}
	return collectRecurring(rows)
}

const updateRecurring = `-- name: UpdateRecurring :one
UPDATE recurring_transactions
SET account_id = ?, category_id = ?, kind = ?, amount_cents = ?, note = ?,
    frequency = ?, start_date = ?, end_date = ?
WHERE id = ? AND user_id = ?
RETURNING ` + recurringColumns

type UpdateRecurringParams struct {
	AccountID   int64
	CategoryID  sql.NullInt64
	Kind        string
	AmountCents int64
	Note        string
	Frequency   string
	StartDate   string
	EndDate     sql.NullString
	ID          int64
	UserID      string
}

func (q *Queries) UpdateRecurring(ctx context.Context, arg UpdateRecurringParams) (RecurringTransaction, error) {
	row := q.db.QueryRowContext(ctx, updateRecurring,
		arg.AccountID,
		arg.CategoryID,
		arg.Kind,
		arg.AmountCents,
		arg.Note,
		arg.Frequency,
		arg.StartDate,
		arg.EndDate,
		arg.ID,
		arg.UserID,
	)
	return scanRecurring(row)
}

const deleteRecurring = `-- name: DeleteRecurring :execrows
DELETE FROM recurring_transactions WHERE id = ? AND user_id = ?`

type DeleteRecurringParams struct {
	ID     int64
	UserID string
}

func (q *Queries) DeleteRecurring(ctx context.Context, arg DeleteRecurringParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteRecurring, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const advanceRecurringWatermark = `-- name: AdvanceRecurringWatermark :execrows
UPDATE recurring_transactions SET last_processed_date = ?
WHERE id = ? AND last_processed_date IS ?`

type AdvanceRecurringWatermarkParams struct {
	LastProcessedDate string
	ID                int64
	Previous          sql.NullString
}

// AdvanceRecurringWatermark moves the watermark only if it still holds the
// value read earlier in the same transaction.
func (q *Queries) AdvanceRecurringWatermark(ctx context.Context, arg AdvanceRecurringWatermarkParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, advanceRecurringWatermark, arg.LastProcessedDate, arg.ID, arg.Previous)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
