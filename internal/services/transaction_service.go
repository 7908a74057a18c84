package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// EventPublisher ships committed ledger changes to other processes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionService owns the create, update and delete primitives. Each
// write and its reconciliation share one database transaction.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	reconciler *Reconciler
	publisher  EventPublisher
	feed       *ChangeFeed
}

func NewTransactionService(storage *storage.SQLiteRepository, publisher EventPublisher, feed *ChangeFeed) *TransactionService {
	return &TransactionService{
		storage:    storage,
		reconciler: NewReconciler(),
		publisher:  publisher,
		feed:       feed,
	}
}

// TransactionPatch holds the fields of an update. Nil fields keep their
// stored value; ClearCategory removes the category.
type TransactionPatch struct {
	AccountID     *int64
	CategoryID    *int64
	ClearCategory bool
	Kind          *core.Kind
	Amount        *core.Money
	Note          *string
	Date          *core.Date
}

func (p TransactionPatch) Apply(tx core.Transaction) core.Transaction {
	if p.AccountID != nil {
		tx.AccountID = *p.AccountID
	}
	if p.ClearCategory {
		tx.CategoryID = nil
	} else if p.CategoryID != nil {
		id := *p.CategoryID
		tx.CategoryID = &id
	}
	if p.Kind != nil {
		tx.Kind = *p.Kind
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Note != nil {
		tx.Note = *p.Note
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	return tx
}

type TransactionFilter struct {
	AccountID  *int64
	CategoryID *int64
	Kind       core.Kind
	From       core.Date
	To         core.Date
	Limit      int
	Offset     int
}

// committedEvent is published once the transaction that produced it commits.
type committedEvent struct {
	typ  amqp.EventType
	snap amqp.TransactionSnapshot
}

// Create inserts tx and reconciles its account and budgets atomically.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	var (
		created core.Transaction
		ev      committedEvent
	)
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		var err error
		created, ev, err = s.createInTx(ctx, q, tx)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	logCommitted(ctx, log.OpCreate, ev.snap, created.UserID)

	s.afterCommit(ctx, created.UserID, ev)
	return created, nil
}

// createInTx is the create primitive shared with the recurring processor.
func (s *TransactionService) createInTx(ctx context.Context, q *storage.Queries, tx core.Transaction) (core.Transaction, committedEvent, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, committedEvent{}, err
	}
	acc, cat, err := resolveRefs(ctx, q, tx.UserID, tx.AccountID, tx.CategoryID)
	if err != nil {
		return core.Transaction{}, committedEvent{}, err
	}

	row, err := q.CreateTransaction(ctx, storage.CreateTransactionParams{
		UserID:      string(tx.UserID),
		AccountID:   tx.AccountID,
		CategoryID:  storage.NullID(tx.CategoryID),
		Kind:        string(tx.Kind),
		AmountCents: tx.Amount.Cents,
		Note:        tx.Note,
		Date:        tx.Date.String(),
		RecurringID: storage.NullID(tx.RecurringID),
	})
	if err != nil {
		return core.Transaction{}, committedEvent{}, fmt.Errorf("insert transaction: %w", err)
	}
	created := row.ToCore()

	if err := s.reconciler.OnCreate(ctx, q, created); err != nil {
		return core.Transaction{}, committedEvent{}, err
	}
	return created, committedEvent{typ: amqp.TransactionCreated, snap: snapshot(created, acc, cat)}, nil
}

// Update applies patch to the stored transaction. The old effect is fully
// reversed and the new one fully applied in the same database transaction.
func (s *TransactionService) Update(ctx context.Context, user core.UserID, id int64, patch TransactionPatch) (core.Transaction, error) {
	var (
		updated core.Transaction
		ev      committedEvent
	)
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		row, err := q.GetTransaction(ctx, storage.GetTransactionParams{ID: id, UserID: string(user)})
		if err != nil {
			if storage.IsNoRows(err) {
				return core.NotFound("transaction", id)
			}
			return fmt.Errorf("get transaction: %w", err)
		}
		old := row.ToCore()

		next := patch.Apply(old)
		if err := next.Validate(); err != nil {
			return err
		}
		acc, cat, err := resolveRefs(ctx, q, user, next.AccountID, next.CategoryID)
		if err != nil {
			return err
		}

		row, err = q.UpdateTransaction(ctx, storage.UpdateTransactionParams{
			AccountID:   next.AccountID,
			CategoryID:  storage.NullID(next.CategoryID),
			Kind:        string(next.Kind),
			AmountCents: next.Amount.Cents,
			Note:        next.Note,
			Date:        next.Date.String(),
			ID:          id,
			UserID:      string(user),
		})
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		updated = row.ToCore()

		if err := s.reconciler.OnUpdate(ctx, q, old, updated); err != nil {
			return err
		}
		ev = committedEvent{typ: amqp.TransactionUpdated, snap: snapshot(updated, acc, cat)}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	logCommitted(ctx, log.OpUpdate, ev.snap, user)

	s.afterCommit(ctx, user, ev)
	return updated, nil
}

// Delete removes the transaction and reverses its stored effect.
func (s *TransactionService) Delete(ctx context.Context, user core.UserID, id int64) error {
	var ev committedEvent
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		var err error
		ev, err = s.deleteInTx(ctx, q, user, id)
		return err
	})
	if err != nil {
		return err
	}

	logCommitted(ctx, log.OpDelete, ev.snap, user)
	s.afterCommit(ctx, user, ev)
	return nil
}

func (s *TransactionService) deleteInTx(ctx context.Context, q *storage.Queries, user core.UserID, id int64) (committedEvent, error) {
	row, err := q.GetTransaction(ctx, storage.GetTransactionParams{ID: id, UserID: string(user)})
	if err != nil {
		if storage.IsNoRows(err) {
			return committedEvent{}, core.NotFound("transaction", id)
		}
		return committedEvent{}, fmt.Errorf("get transaction: %w", err)
	}
	old := row.ToCore()

	if _, err := q.DeleteTransaction(ctx, storage.DeleteTransactionParams{ID: id, UserID: string(user)}); err != nil {
		return committedEvent{}, fmt.Errorf("delete transaction: %w", err)
	}
	if err := s.reconciler.OnDelete(ctx, q, old); err != nil {
		return committedEvent{}, err
	}
	return committedEvent{typ: amqp.TransactionDeleted, snap: snapshot(old, core.Account{}, nil)}, nil
}

func (s *TransactionService) Get(ctx context.Context, user core.UserID, id int64) (core.Transaction, error) {
	row, err := s.storage.Queries().GetTransaction(ctx, storage.GetTransactionParams{ID: id, UserID: string(user)})
	if err != nil {
		if storage.IsNoRows(err) {
			return core.Transaction{}, core.NotFound("transaction", id)
		}
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return row.ToCore(), nil
}

// List returns the user's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, user core.UserID, f TransactionFilter) ([]core.Transaction, error) {
	if f.Kind != "" {
		if err := f.Kind.Validate(); err != nil {
			return nil, core.Invalid("kind", err)
		}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	params := storage.ListTransactionsParams{
		UserID:     string(user),
		AccountID:  storage.NullID(f.AccountID),
		CategoryID: storage.NullID(f.CategoryID),
		FromDate:   storage.NullDate(f.From),
		ToDate:     storage.NullDate(f.To),
		Limit:      int64(limit),
		Offset:     int64(max(f.Offset, 0)),
	}
	if f.Kind != "" {
		params.Kind.String, params.Kind.Valid = string(f.Kind), true
	}

	rows, err := s.storage.Queries().ListTransactions(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToCore())
	}
	return out, nil
}

func (s *TransactionService) afterCommit(ctx context.Context, user core.UserID, events ...committedEvent) {
	for _, ev := range events {
		if err := s.publish(ctx, user, ev); err != nil {
			// Don't fail the request - the write is already committed
			log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Failed to publish transaction event", err,
				log.ErrorTypeInternal, log.ComponentAMQP, string(ev.typ),
				log.LogFields{log.FieldTransactionID: ev.snap.ID}.WithUser(string(user)))
		}
	}
	s.feed.notify(ctx, user)
}

func (s *TransactionService) publish(ctx context.Context, user core.UserID, ev committedEvent) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping transaction event")
		return nil
	}
	return s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(ev.typ, user, ev.snap))
}

// resolveRefs checks that the account, and the category when set, belong
// to user.
func resolveRefs(ctx context.Context, q *storage.Queries, user core.UserID, accountID int64, categoryID *int64) (core.Account, *core.Category, error) {
	acc, err := q.GetAccount(ctx, storage.GetAccountParams{ID: accountID, UserID: string(user)})
	if err != nil {
		if storage.IsNoRows(err) {
			return core.Account{}, nil, core.Invalid("account_id", core.ErrUnknownReference)
		}
		return core.Account{}, nil, fmt.Errorf("get account: %w", err)
	}
	if categoryID == nil {
		return acc.ToCore(), nil, nil
	}
	cat, err := q.GetCategory(ctx, storage.GetCategoryParams{ID: *categoryID, UserID: string(user)})
	if err != nil {
		if storage.IsNoRows(err) {
			return core.Account{}, nil, core.Invalid("category_id", core.ErrUnknownReference)
		}
		return core.Account{}, nil, fmt.Errorf("get category: %w", err)
	}
	c := cat.ToCore()
	return acc.ToCore(), &c, nil
}

// logCommitted logs a committed write through the request scoped logger.
func logCommitted(ctx context.Context, op string, snap amqp.TransactionSnapshot, user core.UserID) {
	log.NewStructuredLogger(log.FromContext(ctx)).LogTransaction(ctx, op, string(user),
		snap.ID, snap.AccountID, snap.CategoryID, string(snap.Kind), snap.Amount.Cents)
}

func snapshot(tx core.Transaction, acc core.Account, cat *core.Category) amqp.TransactionSnapshot {
	snap := amqp.TransactionSnapshot{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		AccountName: acc.Name,
		CategoryID:  tx.CategoryID,
		Kind:        tx.Kind,
		Amount:      tx.Amount,
		Note:        tx.Note,
		Date:        tx.Date,
		RecurringID: tx.RecurringID,
	}
	if cat != nil {
		snap.CategoryName = cat.Name
	}
	return snap
}
