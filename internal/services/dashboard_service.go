package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	defaultDashboardTTL = 30 * time.Second
	dashboardCacheSize  = 1000
	defaultTrendMonths  = 6
	maxTrendMonths      = 36
	keySeparator        = "|"
)

// DashboardFilter narrows the dashboard aggregates. Zero values mean
// no restriction.
type DashboardFilter struct {
	AccountID *int64
	From      core.Date
	To        core.Date
}

func (f DashboardFilter) key() string {
	acc := "*"
	if f.AccountID != nil {
		acc = strconv.FormatInt(*f.AccountID, 10)
	}
	return acc + keySeparator + f.From.String() + keySeparator + f.To.String()
}

func (f DashboardFilter) params(user core.UserID) storage.DashboardFilter {
	return storage.DashboardFilter{
		UserID:    string(user),
		AccountID: storage.NullID(f.AccountID),
		FromDate:  storage.NullDate(f.From),
		ToDate:    storage.NullDate(f.To),
	}
}

// DashboardService computes read-only ledger views. Results are cached per
// user and dropped whenever that user commits a write.
type DashboardService struct {
	storage *storage.SQLiteRepository
	cache   *cache.LRUCache[any]
	group   singleflight.Group

	// generations counts invalidations per user. A computation only fills
	// the cache if no write landed while it ran.
	mu          sync.Mutex
	generations map[core.UserID]uint64
}

func NewDashboardService(storage *storage.SQLiteRepository, feed *ChangeFeed, ttl time.Duration) *DashboardService {
	if ttl <= 0 {
		ttl = defaultDashboardTTL
	}
	s := &DashboardService{
		storage:     storage,
		cache:       cache.NewLRUCache[any](dashboardCacheSize, ttl),
		generations: make(map[core.UserID]uint64),
	}
	if feed != nil {
		feed.Subscribe(s.Invalidate)
	}
	return s
}

// Cache exposes the result cache so it can be registered for cleanup.
func (s *DashboardService) Cache() *cache.LRUCache[any] {
	return s.cache
}

// Invalidate drops every cached view of user.
func (s *DashboardService) Invalidate(ctx context.Context, user core.UserID) {
	s.mu.Lock()
	s.generations[user]++
	n := s.cache.DeletePrefix(string(user) + keySeparator)
	s.mu.Unlock()
	if n > 0 {
		slog.DebugContext(ctx, "Dashboard cache invalidated", log.FieldUserID, user, "entries", n)
	}
}

// cached returns the cached value for key or computes it once, sharing the
// computation between concurrent callers.
func cached[T any](s *DashboardService, user core.UserID, key string, compute func() (T, error)) (T, error) {
	full := string(user) + keySeparator + key
	if v, ok := s.cache.Get(full); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	gen := s.generation(user)
	v, err, _ := s.group.Do(full+keySeparator+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		res, err := compute()
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.generations[user] == gen {
			s.cache.Set(full, res)
		}
		s.mu.Unlock()
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (s *DashboardService) generation(user core.UserID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[user]
}

// Summary returns total income, total expense, net and the account balances.
func (s *DashboardService) Summary(ctx context.Context, user core.UserID, f DashboardFilter) (core.Summary, error) {
	if err := validateDashboard(user, f); err != nil {
		return core.Summary{}, err
	}
	return cached(s, user, "summary"+keySeparator+f.key(), func() (core.Summary, error) {
		q := s.storage.Queries()

		totals, err := q.SumByKind(ctx, f.params(user))
		if err != nil {
			return core.Summary{}, fmt.Errorf("sum by kind: %w", err)
		}
		var sum core.Summary
		for _, t := range totals {
			switch core.Kind(t.Kind) {
			case core.Income:
				sum.TotalIncome = core.Cents(t.TotalCents)
			case core.Expense:
				sum.TotalExpense = core.Cents(t.TotalCents)
			}
		}
		sum.Net = sum.TotalIncome.Sub(sum.TotalExpense)

		accounts, err := q.ListAccounts(ctx, string(user))
		if err != nil {
			return core.Summary{}, fmt.Errorf("list accounts: %w", err)
		}
		sum.Accounts = make([]core.AccountBalance, 0, len(accounts))
		for _, a := range accounts {
			if f.AccountID != nil && a.ID != *f.AccountID {
				continue
			}
			sum.Accounts = append(sum.Accounts, core.AccountBalance{
				AccountID: a.ID,
				Name:      a.Name,
				Type:      core.AccountType(a.Type),
				Balance:   core.Cents(a.BalanceCents),
			})
		}
		return sum, nil
	})
}

// CategoryBreakdown groups the filtered transactions by category and kind.
func (s *DashboardService) CategoryBreakdown(ctx context.Context, user core.UserID, f DashboardFilter) ([]core.CategoryAmount, error) {
	if err := validateDashboard(user, f); err != nil {
		return nil, err
	}
	return cached(s, user, "categories"+keySeparator+f.key(), func() ([]core.CategoryAmount, error) {
		rows, err := s.storage.Queries().CategoryBreakdown(ctx, f.params(user))
		if err != nil {
			return nil, fmt.Errorf("category breakdown: %w", err)
		}
		out := make([]core.CategoryAmount, 0, len(rows))
		for _, r := range rows {
			var id *int64
			if r.CategoryID.Valid {
				v := r.CategoryID.Int64
				id = &v
			}
			out = append(out, core.CategoryAmount{
				CategoryID: id,
				Name:       r.Name,
				Kind:       core.Kind(r.Kind),
				Amount:     core.Cents(r.TotalCents),
				Count:      int(r.TxCount),
			})
		}
		return out, nil
	})
}

// BudgetStatus compares every budget still running on activeOn with its
// limit. A zero activeOn lists every budget.
func (s *DashboardService) BudgetStatus(ctx context.Context, user core.UserID, activeOn core.Date) ([]core.BudgetStatus, error) {
	if err := user.Validate(); err != nil {
		return nil, core.Invalid("user_id", err)
	}
	return cached(s, user, "budgets"+keySeparator+activeOn.String(), func() ([]core.BudgetStatus, error) {
		rows, err := s.storage.Queries().BudgetStatus(ctx, storage.BudgetStatusParams{
			UserID:   string(user),
			ActiveOn: storage.NullDate(activeOn),
		})
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		out := make([]core.BudgetStatus, 0, len(rows))
		for _, r := range rows {
			b := core.Budget{Limit: core.Cents(r.AmountCents), CurrentExpense: core.Cents(r.CurrentExpenseCents)}
			start, _ := core.ParseDate(r.StartDate)
			end, _ := core.ParseDate(r.EndDate)
			remaining := b.Remaining()
			out = append(out, core.BudgetStatus{
				BudgetID:       r.ID,
				CategoryID:     r.CategoryID,
				CategoryName:   r.CategoryName,
				StartDate:      start,
				EndDate:        end,
				Limit:          b.Limit,
				CurrentExpense: b.CurrentExpense,
				Remaining:      remaining,
				OverLimit:      remaining.IsNegative(),
			})
		}
		return out, nil
	})
}

// MonthlyTrend returns one entry per calendar month for the months ending
// with the month of today, oldest first. Months without transactions are
// reported as zero.
func (s *DashboardService) MonthlyTrend(ctx context.Context, user core.UserID, accountID *int64, months int, today core.Date) ([]core.MonthOverview, error) {
	if err := user.Validate(); err != nil {
		return nil, core.Invalid("user_id", err)
	}
	if months <= 0 {
		months = defaultTrendMonths
	}
	if months > maxTrendMonths {
		return nil, core.Invalid("months", fmt.Errorf("must be at most %d", maxTrendMonths))
	}
	if today.IsZero() {
		today = core.Today()
	}

	first := core.NewDate(today.Year(), today.Month(), 1)
	from := core.DateOf(first.AddDate(0, -(months - 1), 0))
	last := core.NewDate(today.Year(), today.Month(), core.DaysIn(today.Year(), time.Month(today.Month())))
	f := DashboardFilter{AccountID: accountID, From: from, To: last}

	key := "trend" + keySeparator + strconv.Itoa(months) + keySeparator + f.key()
	return cached(s, user, key, func() ([]core.MonthOverview, error) {
		rows, err := s.storage.Queries().MonthlyTotals(ctx, f.params(user))
		if err != nil {
			return nil, fmt.Errorf("monthly totals: %w", err)
		}
		byMonth := make(map[string]storage.MonthlyTotalsRow, len(rows))
		for _, r := range rows {
			byMonth[r.Month] = r
		}

		out := make([]core.MonthOverview, 0, months)
		for i := 0; i < months; i++ {
			m := core.DateOf(from.AddDate(0, i, 0))
			r := byMonth[m.Format("2006-01")]
			income, expense := core.Cents(r.IncomeCents), core.Cents(r.ExpenseCents)
			out = append(out, core.MonthOverview{
				Year:    m.Year(),
				Month:   m.Month(),
				Income:  income,
				Expense: expense,
				Net:     income.Sub(expense),
			})
		}
		return out, nil
	})
}

func validateDashboard(user core.UserID, f DashboardFilter) error {
	if err := user.Validate(); err != nil {
		return core.Invalid("user_id", err)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return core.Invalid("to", core.ErrDateRange)
	}
	return nil
}
