package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Row is one transaction as mirrored in the ledger sheet.
type Row struct {
	ID       int64
	Date     core.Date
	Account  string
	Category string
	Kind     core.Kind
	Amount   core.Money
	Note     string
}

// Header is the first row of the ledger sheet.
var Header = []string{"ID", "Date", "Account", "Category", "Kind", "Amount", "Note"}

// Ports for outbound adapters.
type (
	// LedgerMirror keeps one row per transaction, keyed by ID.
	LedgerMirror interface {
		// Upsert replaces the row with the same ID or appends a new one.
		Upsert(ctx context.Context, r Row) error
		// Delete removes the row with the given ID. A missing row is not an error.
		Delete(ctx context.Context, id int64) error
	}

	LedgerReader interface {
		List(ctx context.Context) ([]Row, error)
	}
)
