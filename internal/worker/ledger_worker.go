package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

const backfillPage = 200

// LedgerWorker keeps the ledger mirror in step with committed transactions.
type LedgerWorker struct {
	storage *storage.SQLiteRepository
	mirror  sheets.LedgerMirror
}

func NewLedgerWorker(storage *storage.SQLiteRepository, mirror sheets.LedgerMirror) *LedgerWorker {
	return &LedgerWorker{
		storage: storage,
		mirror:  mirror,
	}
}

// HandleTransactionEvent applies one ledger event to the mirror. Creates and
// updates upsert the row; deletes remove it.
func (w *LedgerWorker) HandleTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"event_id", ev.EventID,
		"type", ev.Type,
		log.FieldUserID, ev.UserID,
		log.FieldTransactionID, ev.Transaction.ID)

	switch ev.Type {
	case amqp.TransactionCreated, amqp.TransactionUpdated:
		if err := w.mirror.Upsert(ctx, rowFromSnapshot(ev.Transaction)); err != nil {
			return fmt.Errorf("upsert ledger row: %w", err)
		}
	case amqp.TransactionDeleted:
		if err := w.mirror.Delete(ctx, ev.Transaction.ID); err != nil {
			return fmt.Errorf("delete ledger row: %w", err)
		}
	default:
		// Unknown types are acknowledged so they don't loop on the queue
		slog.WarnContext(ctx, "Ignoring unknown event type", "type", ev.Type, "event_id", ev.EventID)
	}
	return nil
}

// Backfill upserts every stored transaction of user into the mirror. This
// recovers rows whose events were lost while the worker was down.
func (w *LedgerWorker) Backfill(ctx context.Context, user core.UserID) error {
	q := w.storage.Queries()

	accounts, err := q.ListAccounts(ctx, string(user))
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	accountNames := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}
	categories, err := q.ListCategories(ctx, string(user))
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	synced, errorCount := 0, 0
	for offset := int64(0); ; offset += backfillPage {
		rows, err := q.ListTransactions(ctx, storage.ListTransactionsParams{
			UserID: string(user),
			Limit:  backfillPage,
			Offset: offset,
		})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}

		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			tx := row.ToCore()
			r := sheets.Row{
				ID:      tx.ID,
				Date:    tx.Date,
				Account: accountNames[tx.AccountID],
				Kind:    tx.Kind,
				Amount:  tx.Amount,
				Note:    tx.Note,
			}
			if tx.CategoryID != nil {
				r.Category = categoryNames[*tx.CategoryID]
			}
			if err := w.mirror.Upsert(ctx, r); err != nil {
				slog.ErrorContext(ctx, "Failed to backfill ledger row",
					log.FieldTransactionID, tx.ID, log.FieldError, err)
				errorCount++
				continue
			}
			synced++
		}

		if len(rows) < backfillPage {
			break
		}
	}

	slog.InfoContext(ctx, "Ledger backfill completed",
		log.FieldUserID, user,
		"synced", synced,
		"errors", errorCount)

	if errorCount > 0 {
		return fmt.Errorf("backfill: %d rows failed", errorCount)
	}
	return nil
}

func rowFromSnapshot(s amqp.TransactionSnapshot) sheets.Row {
	return sheets.Row{
		ID:       s.ID,
		Date:     s.Date,
		Account:  s.AccountName,
		Category: s.CategoryName,
		Kind:     s.Kind,
		Amount:   s.Amount,
		Note:     s.Note,
	}
}
