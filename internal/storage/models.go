package storage

import (
	"database/sql"
	"time"

	"fintrack/internal/core"
)

type Account struct {
	ID                  int64
	UserID              string
	Name                string
	Type                string
	OpeningBalanceCents int64
	BalanceCents        int64
	CreatedAt           string
}

type Category struct {
	ID        int64
	UserID    string
	Name      string
	Kind      string
	Color     string
	Icon      string
	CreatedAt string
}

type Transaction struct {
	ID          int64
	UserID      string
	AccountID   int64
	CategoryID  sql.NullInt64
	Kind        string
	AmountCents int64
	Note        string
	Date        string
	RecurringID sql.NullInt64
	CreatedAt   string
}

type RecurringTransaction struct {
	ID                int64
	UserID            string
	AccountID         int64
	CategoryID        sql.NullInt64
	Kind              string
	AmountCents       int64
	Note              string
	Frequency         string
	StartDate         string
	EndDate           sql.NullString
	LastProcessedDate sql.NullString
	CreatedAt         string
}

type Budget struct {
	ID                  int64
	UserID              string
	CategoryID          int64
	AmountCents         int64
	CurrentExpenseCents int64
	StartDate           string
	EndDate             string
	CreatedAt           string
}

func (a Account) ToCore() core.Account {
	return core.Account{
		ID:             a.ID,
		UserID:         core.UserID(a.UserID),
		Name:           a.Name,
		Type:           core.AccountType(a.Type),
		OpeningBalance: core.Cents(a.OpeningBalanceCents),
		Balance:        core.Cents(a.BalanceCents),
		CreatedAt:      parseTimestamp(a.CreatedAt),
	}
}

func (c Category) ToCore() core.Category {
	return core.Category{
		ID:        c.ID,
		UserID:    core.UserID(c.UserID),
		Name:      c.Name,
		Kind:      core.Kind(c.Kind),
		Color:     c.Color,
		Icon:      c.Icon,
		CreatedAt: parseTimestamp(c.CreatedAt),
	}
}

func (t Transaction) ToCore() core.Transaction {
	return core.Transaction{
		ID:          t.ID,
		UserID:      core.UserID(t.UserID),
		AccountID:   t.AccountID,
		CategoryID:  ptrFromNull(t.CategoryID),
		Kind:        core.Kind(t.Kind),
		Amount:      core.Cents(t.AmountCents),
		Note:        t.Note,
		Date:        parseDate(t.Date),
		RecurringID: ptrFromNull(t.RecurringID),
		CreatedAt:   parseTimestamp(t.CreatedAt),
	}
}

func (r RecurringTransaction) ToCore() core.RecurringTemplate {
	return core.RecurringTemplate{
		ID:                r.ID,
		UserID:            core.UserID(r.UserID),
		AccountID:         r.AccountID,
		CategoryID:        ptrFromNull(r.CategoryID),
		Kind:              core.Kind(r.Kind),
		Amount:            core.Cents(r.AmountCents),
		Note:              r.Note,
		Frequency:         core.Frequency(r.Frequency),
		StartDate:         parseDate(r.StartDate),
		EndDate:           parseNullDate(r.EndDate),
		LastProcessedDate: parseNullDate(r.LastProcessedDate),
		CreatedAt:         parseTimestamp(r.CreatedAt),
	}
}

func (b Budget) ToCore() core.Budget {
	return core.Budget{
		ID:             b.ID,
		UserID:         core.UserID(b.UserID),
		CategoryID:     b.CategoryID,
		Limit:          core.Cents(b.AmountCents),
		CurrentExpense: core.Cents(b.CurrentExpenseCents),
		StartDate:      parseDate(b.StartDate),
		EndDate:        parseDate(b.EndDate),
		CreatedAt:      parseTimestamp(b.CreatedAt),
	}
}

// NullID converts an optional id into its column value.
func NullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// NullDate converts an optional date into its column value.
func NullDate(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func ptrFromNull(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func parseDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}

func parseNullDate(s sql.NullString) core.Date {
	if !s.Valid {
		return core.Date{}
	}
	return parseDate(s.String)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
