package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// CatalogService manages accounts and categories.
type CatalogService struct {
	storage      *storage.SQLiteRepository
	transactions *TransactionService
	feed         *ChangeFeed
}

func NewCatalogService(storage *storage.SQLiteRepository, transactions *TransactionService, feed *ChangeFeed) *CatalogService {
	return &CatalogService{storage: storage, transactions: transactions, feed: feed}
}

type AccountPatch struct {
	Name *string
	Type *core.AccountType
}

type CategoryPatch struct {
	Name  *string
	Kind  *core.Kind
	Color *string
	Icon  *string
}

// CreateAccount opens an account whose balance starts at its opening balance.
func (s *CatalogService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	row, err := s.storage.Queries().CreateAccount(ctx, storage.CreateAccountParams{
		UserID:              string(a.UserID),
		Name:                a.Name,
		Type:                string(a.Type),
		OpeningBalanceCents: a.OpeningBalance.Cents,
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	created := row.ToCore()

	slog.InfoContext(ctx, "Account created",
		log.FieldAccountID, created.ID,
		log.FieldUserID, created.UserID,
		"opening_balance_cents", created.OpeningBalance.Cents)
	s.feed.notify(ctx, created.UserID)
	return created, nil
}

// UpdateAccount renames or retypes an account. The balance is not writable.
func (s *CatalogService) UpdateAccount(ctx context.Context, user core.UserID, id int64, patch AccountPatch) (core.Account, error) {
	var updated core.Account
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		row, err := q.GetAccount(ctx, storage.GetAccountParams{ID: id, UserID: string(user)})
		if err != nil {
			if storage.IsNoRows(err) {
				return core.NotFound("account", id)
			}
			return fmt.Errorf("get account: %w", err)
		}
		next := row.ToCore()
		if patch.Name != nil {
			next.Name = *patch.Name
		}
		if patch.Type != nil {
			next.Type = *patch.Type
		}
		if err := next.Validate(); err != nil {
			return err
		}
		row, err = q.UpdateAccount(ctx, storage.UpdateAccountParams{
			Name:   next.Name,
			Type:   string(next.Type),
			ID:     id,
			UserID: string(user),
		})
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		updated = row.ToCore()
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	s.feed.notify(ctx, user)
	return updated, nil
}

// DeleteAccount removes the account with its transactions and templates.
// Every transaction is reversed first so the budgets it counted towards
// drop it, all in one database transaction.
func (s *CatalogService) DeleteAccount(ctx context.Context, user core.UserID, id int64) error {
	var events []committedEvent
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetAccount(ctx, storage.GetAccountParams{ID: id, UserID: string(user)}); err != nil {
			if storage.IsNoRows(err) {
				return core.NotFound("account", id)
			}
			return fmt.Errorf("get account: %w", err)
		}
		rows, err := q.ListAccountTransactions(ctx, storage.ListAccountTransactionsParams{AccountID: id, UserID: string(user)})
		if err != nil {
			return fmt.Errorf("list account transactions: %w", err)
		}
		for _, row := range rows {
			ev, err := s.transactions.deleteInTx(ctx, q, user, row.ID)
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		if _, err := q.DeleteAccount(ctx, storage.DeleteAccountParams{ID: id, UserID: string(user)}); err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Account deleted",
		log.FieldAccountID, id,
		log.FieldUserID, user,
		"transactions_removed", len(events))
	s.transactions.afterCommit(ctx, user, events...)
	return nil
}

func (s *CatalogService) GetAccount(ctx context.Context, user core.UserID, id int64) (core.Account, error) {
	row, err := s.storage.Queries().GetAccount(ctx, storage.GetAccountParams{ID: id, UserID: string(user)})
	if err != nil {
		if storage.IsNoRows(err) {
			return core.Account{}, core.NotFound("account", id)
		}
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return row.ToCore(), nil
}

func (s *CatalogService) ListAccounts(ctx context.Context, user core.UserID) ([]core.Account, error) {
	rows, err := s.storage.Queries().ListAccounts(ctx, string(user))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToCore())
	}
	return out, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.Color == "" {
		c.Color = core.DefaultCategoryColor
	}
	if c.Icon == "" {
		c.Icon = core.DefaultCategoryIcon
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	row, err := s.storage.Queries().CreateCategory(ctx, storage.CreateCategoryParams{
		UserID: string(c.UserID),
		Name:   c.Name,
		Kind:   string(c.Kind),
		Color:  c.Color,
		Icon:   c.Icon,
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	created := row.ToCore()
	slog.InfoContext(ctx, "Category created", log.FieldCategoryID, created.ID, log.FieldUserID, created.UserID)
	return created, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, user core.UserID, id int64, patch CategoryPatch) (core.Category, error) {
	var updated core.Category
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		row, err := q.GetCategory(ctx, storage.GetCategoryParams{ID: id, UserID: string(user)})
		if err != nil {
			if storage.IsNoRows(err) {
				return core.NotFound("category", id)
			}
			return fmt.Errorf("get category: %w", err)
		}
		next := row.ToCore()
		if patch.Name != nil {
			next.Name = *patch.Name
		}
		if patch.Kind != nil {
			next.Kind = *patch.Kind
		}
		if patch.Color != nil {
			next.Color = *patch.Color
		}
		if patch.Icon != nil {
			next.Icon = *patch.Icon
		}
		if err := next.Validate(); err != nil {
			return err
		}
		row, err = q.UpdateCategory(ctx, storage.UpdateCategoryParams{
			Name:   next.Name,
			Kind:   string(next.Kind),
			Color:  next.Color,
			Icon:   next.Icon,
			ID:     id,
			UserID: string(user),
		})
		if err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		updated = row.ToCore()
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}
	s.feed.notify(ctx, user)
	return updated, nil
}

// DeleteCategory drops the category's budgets and uncategorises its
// transactions and templates. Uncategorised transactions qualify for no
// budget, and the only budgets they qualified for are removed with it, so
// no aggregate needs adjusting.
func (s *CatalogService) DeleteCategory(ctx context.Context, user core.UserID, id int64) error {
	n, err := s.storage.Queries().DeleteCategory(ctx, storage.DeleteCategoryParams{ID: id, UserID: string(user)})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return core.NotFound("category", id)
	}
	slog.InfoContext(ctx, "Category deleted", log.FieldCategoryID, id, log.FieldUserID, user)
	s.feed.notify(ctx, user)
	return nil
}

func (s *CatalogService) GetCategory(ctx context.Context, user core.UserID, id int64) (core.Category, error) {
	row, err := s.storage.Queries().GetCategory(ctx, storage.GetCategoryParams{ID: id, UserID: string(user)})
	if err != nil {
		if storage.IsNoRows(err) {
			return core.Category{}, core.NotFound("category", id)
		}
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return row.ToCore(), nil
}

func (s *CatalogService) ListCategories(ctx context.Context, user core.UserID) ([]core.Category, error) {
	rows, err := s.storage.Queries().ListCategories(ctx, string(user))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToCore())
	}
	return out, nil
}
