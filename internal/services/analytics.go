package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const (
	stabilityMonths      = 3
	growthSlopeMonths    = 6
	forecastBaseMonths   = 6
	defaultForecastAhead = 3
	maxForecastAhead     = 24
	patternDays          = 90
	patternWeeks         = 12
	defaultStatsDays     = 30
	maxStatsDays         = 366
	maxOutliers          = 10
	defaultCompareDays   = 30
)

var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

type ledgerEntry struct {
	ID         int64
	Date       core.Date
	Kind       core.Kind
	Cents      int64
	CategoryID *int64
	Category   string
	Note       string
}

// entries loads the transactions of user between from and to, oldest first.
func (s *DashboardService) entries(ctx context.Context, user core.UserID, accountID *int64, from, to core.Date) ([]ledgerEntry, error) {
	f := DashboardFilter{AccountID: accountID, From: from, To: to}
	rows, err := s.storage.Queries().ListLedgerEntries(ctx, f.params(user))
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	out := make([]ledgerEntry, 0, len(rows))
	for _, r := range rows {
		d, err := core.ParseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", r.ID, err)
		}
		out = append(out, ledgerEntry{
			ID:         r.ID,
			Date:       d,
			Kind:       core.Kind(r.Kind),
			Cents:      r.AmountCents,
			CategoryID: nullableID(r.CategoryID.Int64, r.CategoryID.Valid),
			Category:   r.CategoryName,
			Note:       r.Note,
		})
	}
	return out, nil
}

// monthlyTotals sums income and expense per YYYY-MM.
func monthlyTotals(entries []ledgerEntry) (income, expense map[string]int64) {
	income, expense = make(map[string]int64), make(map[string]int64)
	for _, e := range entries {
		key := e.Date.Format("2006-01")
		if e.Kind == core.Income {
			income[key] += e.Cents
		} else {
			expense[key] += e.Cents
		}
	}
	return income, expense
}

// FinancialHealth scores the month of today.
func (s *DashboardService) FinancialHealth(ctx context.Context, user core.UserID, today core.Date) (core.FinancialHealth, error) {
	if err := user.Validate(); err != nil {
		return core.FinancialHealth{}, core.Invalid("user_id", err)
	}
	today = orToday(today)

	return cached(s, user, "health"+keySeparator+today.String(), func() (core.FinancialHealth, error) {
		var h core.FinancialHealth
		from, _ := monthBounds(today, -(stabilityMonths - 1))
		_, to := monthBounds(today, 0)
		entries, err := s.entries(ctx, user, nil, from, to)
		if err != nil {
			return h, err
		}
		income, expense := monthlyTotals(entries)
		thisMonth := today.Format("2006-01")

		if in := income[thisMonth]; in > 0 {
			h.SavingsRate = percent(in-expense[thisMonth], in)
			h.SavingsPoints = round2(math.Min(40, math.Max(0, h.SavingsRate/20*40)))
		}

		budgets, err := s.storage.Queries().BudgetStatus(ctx, storage.BudgetStatusParams{
			UserID:   string(user),
			ActiveOn: storage.NullDate(today),
		})
		if err != nil {
			return h, fmt.Errorf("budget status: %w", err)
		}
		if len(budgets) > 0 {
			onTrack := 0
			for _, b := range budgets {
				if b.CurrentExpenseCents <= b.AmountCents {
					onTrack++
				}
			}
			h.BudgetAdherence = percent(int64(onTrack), int64(len(budgets)))
			h.BudgetPoints = round2(h.BudgetAdherence * 0.3)
		}

		h.SpendingStability, h.StabilityPoints = 100, 20
		monthly := make([]float64, 0, stabilityMonths)
		spent := false
		for i := 0; i < stabilityMonths; i++ {
			m, _ := monthBounds(today, -i)
			v := expense[m.Format("2006-01")]
			spent = spent || v != 0
			monthly = append(monthly, float64(v))
		}
		if spent {
			if mean := meanOf(monthly); mean > 0 {
				cv := stdDev(monthly, true) / mean * 100
				h.SpendingStability = round2(100 - math.Min(100, cv))
				h.StabilityPoints = round2(math.Max(0, 20-cv/5))
			}
		}

		balance, err := s.totalBalance(ctx, user)
		if err != nil {
			return h, err
		}
		h.TotalBalance = core.Cents(balance)
		if balance >= 0 {
			h.BalancePoints = 10
		}

		h.TotalScore = round2(h.SavingsPoints + h.BudgetPoints + h.StabilityPoints + h.BalancePoints)
		h.Rating = core.HealthRating(h.TotalScore)
		return h, nil
	})
}

// SpendingGrowth compares this month's expenses month over month and year
// over year.
func (s *DashboardService) SpendingGrowth(ctx context.Context, user core.UserID, accountID *int64, today core.Date) (core.SpendingGrowth, error) {
	if err := user.Validate(); err != nil {
		return core.SpendingGrowth{}, core.Invalid("user_id", err)
	}
	today = orToday(today)

	key := "growth" + keySeparator + today.String() + keySeparator + idKey(accountID)
	return cached(s, user, key, func() (core.SpendingGrowth, error) {
		from, _ := monthBounds(today, -12)
		_, to := monthBounds(today, 0)
		entries, err := s.entries(ctx, user, accountID, from, to)
		if err != nil {
			return core.SpendingGrowth{}, err
		}
		_, expense := monthlyTotals(entries)
		month := func(offset int) int64 {
			m, _ := monthBounds(today, offset)
			return expense[m.Format("2006-01")]
		}

		g := core.SpendingGrowth{
			CurrentMonth:      core.Cents(month(0)),
			LastMonth:         core.Cents(month(-1)),
			LastYearSameMonth: core.Cents(month(-12)),
			Trend:             core.TrendStable,
		}
		if last := g.LastMonth.Cents; last > 0 {
			g.MoMGrowthRate = percent(g.CurrentMonth.Cents-last, last)
		}
		if prev := g.LastYearSameMonth.Cents; prev > 0 {
			g.YoYGrowthRate = percent(g.CurrentMonth.Cents-prev, prev)
		}
		switch {
		case g.MoMGrowthRate > 0:
			g.Trend = core.TrendIncreasing
		case g.MoMGrowthRate < 0:
			g.Trend = core.TrendDecreasing
		}

		series := make([]float64, growthSlopeMonths)
		for i := range series {
			series[i] = float64(month(i - (growthSlopeMonths - 1)))
		}
		g.MonthlySlope = core.Cents(int64(math.Round(linearSlope(series))))
		return g, nil
	})
}

// CashFlowForecast projects the average monthly net of the last six months
// over the next monthsAhead months.
func (s *DashboardService) CashFlowForecast(ctx context.Context, user core.UserID, monthsAhead int, today core.Date) (core.CashFlowForecast, error) {
	if err := user.Validate(); err != nil {
		return core.CashFlowForecast{}, core.Invalid("user_id", err)
	}
	if monthsAhead <= 0 {
		monthsAhead = defaultForecastAhead
	}
	if monthsAhead > maxForecastAhead {
		return core.CashFlowForecast{}, core.Invalid("months", fmt.Errorf("must be at most %d", maxForecastAhead))
	}
	today = orToday(today)

	key := "forecast" + keySeparator + strconv.Itoa(monthsAhead) + keySeparator + today.String()
	return cached(s, user, key, func() (core.CashFlowForecast, error) {
		from, _ := monthBounds(today, -(forecastBaseMonths - 1))
		_, to := monthBounds(today, 0)
		entries, err := s.entries(ctx, user, nil, from, to)
		if err != nil {
			return core.CashFlowForecast{}, err
		}
		var income, expense int64
		for _, e := range entries {
			if e.Kind == core.Income {
				income += e.Cents
			} else {
				expense += e.Cents
			}
		}

		balance, err := s.totalBalance(ctx, user)
		if err != nil {
			return core.CashFlowForecast{}, err
		}
		fc := core.CashFlowForecast{
			CurrentBalance:    core.Cents(balance),
			AvgMonthlyIncome:  core.Cents(divRound(income, forecastBaseMonths)),
			AvgMonthlyExpense: core.Cents(divRound(expense, forecastBaseMonths)),
			Forecasts:         make([]core.ForecastMonth, 0, monthsAhead),
		}
		net := fc.AvgMonthlyIncome.Sub(fc.AvgMonthlyExpense)
		projected := fc.CurrentBalance
		for i := 1; i <= monthsAhead; i++ {
			projected = projected.Add(net)
			m, _ := monthBounds(today, i)
			fc.Forecasts = append(fc.Forecasts, core.ForecastMonth{
				Month:            m.Format("2006-01"),
				ProjectedIncome:  fc.AvgMonthlyIncome,
				ProjectedExpense: fc.AvgMonthlyExpense,
				ProjectedNet:     net,
				ProjectedBalance: projected,
			})
		}
		return fc, nil
	})
}

// BudgetBurnRate reports how fast each budget running on today is consumed.
func (s *DashboardService) BudgetBurnRate(ctx context.Context, user core.UserID, today core.Date) ([]core.BudgetBurn, error) {
	if err := user.Validate(); err != nil {
		return nil, core.Invalid("user_id", err)
	}
	today = orToday(today)

	return cached(s, user, "burn"+keySeparator+today.String(), func() ([]core.BudgetBurn, error) {
		rows, err := s.storage.Queries().BudgetStatus(ctx, storage.BudgetStatusParams{
			UserID:   string(user),
			ActiveOn: storage.NullDate(today),
		})
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}

		out := make([]core.BudgetBurn, 0, len(rows))
		for _, r := range rows {
			start, err := core.ParseDate(r.StartDate)
			if err != nil {
				return nil, fmt.Errorf("budget %d: %w", r.ID, err)
			}
			end, err := core.ParseDate(r.EndDate)
			if err != nil {
				return nil, fmt.Errorf("budget %d: %w", r.ID, err)
			}
			total := daysBetween(start, end) + 1
			elapsed := daysBetween(start, today) + 1
			spent, limit := r.CurrentExpenseCents, r.AmountCents

			b := core.BudgetBurn{
				BudgetID:           r.ID,
				CategoryName:       r.CategoryName,
				Limit:              core.Cents(limit),
				CurrentExpense:     core.Cents(spent),
				DailyBurnRate:      core.Cents(divRound(spent, int64(elapsed))),
				ProjectedTotal:     core.Cents(divRound(spent*int64(total), int64(elapsed))),
				DaysElapsed:        elapsed,
				DaysRemaining:      daysBetween(today, end),
				PercentTimeElapsed: percent(int64(elapsed), int64(total)),
				Status:             core.BurnOnTrack,
			}
			if limit > 0 {
				b.PercentUsed = percent(spent, limit)
			}
			if left := limit - spent; spent > 0 && left > 0 {
				// left / (spent / elapsed), truncated to whole days
				days := int(left * int64(elapsed) / spent)
				b.DaysToExhaust = &days
			}
			switch {
			case b.PercentUsed > b.PercentTimeElapsed+20:
				b.Status = core.BurnOverspending
			case b.PercentUsed > b.PercentTimeElapsed:
				b.Status = core.BurnOnTrackHigh
			}
			out = append(out, b)
		}
		return out, nil
	})
}

// SpendingPatterns groups the expenses of the last 90 days by weekday and
// by week. Weekday averages are per day with spending.
func (s *DashboardService) SpendingPatterns(ctx context.Context, user core.UserID, accountID *int64, today core.Date) (core.SpendingPatterns, error) {
	if err := user.Validate(); err != nil {
		return core.SpendingPatterns{}, core.Invalid("user_id", err)
	}
	today = orToday(today)

	key := "patterns" + keySeparator + today.String() + keySeparator + idKey(accountID)
	return cached(s, user, key, func() (core.SpendingPatterns, error) {
		entries, err := s.entries(ctx, user, accountID, today.AddDays(-patternDays), today)
		if err != nil {
			return core.SpendingPatterns{}, err
		}

		perDay := make(map[core.Date]int64)
		type week struct {
			total int64
			count int
		}
		weeks := make(map[core.Date]*week)
		for _, e := range entries {
			if e.Kind != core.Expense {
				continue
			}
			perDay[e.Date] += e.Cents
			start := weekStart(e.Date)
			w, ok := weeks[start]
			if !ok {
				w = &week{}
				weeks[start] = w
			}
			w.total += e.Cents
			w.count++
		}

		var sums [7]int64
		var days [7]int
		for d, total := range perDay {
			i := isoWeekday(d)
			sums[i] += total
			days[i]++
		}
		p := core.SpendingPatterns{
			Daily:  make([]core.WeekdaySpending, 0, 7),
			Weekly: make([]core.WeekSpending, 0, len(weeks)),
		}
		for i, name := range weekdayNames {
			p.Daily = append(p.Daily, core.WeekdaySpending{
				Day:         name,
				AvgSpending: core.Cents(divRound(sums[i], int64(days[i]))),
				Days:        days[i],
			})
		}
		for start, w := range weeks {
			p.Weekly = append(p.Weekly, core.WeekSpending{WeekStart: start, TotalSpending: core.Cents(w.total), TransactionCount: w.count})
		}
		sort.Slice(p.Weekly, func(i, j int) bool { return p.Weekly[i].WeekStart.Before(p.Weekly[j].WeekStart) })
		if len(p.Weekly) > patternWeeks {
			p.Weekly = p.Weekly[len(p.Weekly)-patternWeeks:]
		}
		return p, nil
	})
}

// CategoryInsights details the expenses of the month of today per category.
func (s *DashboardService) CategoryInsights(ctx context.Context, user core.UserID, accountID *int64, today core.Date) (core.CategoryInsights, error) {
	if err := user.Validate(); err != nil {
		return core.CategoryInsights{}, core.Invalid("user_id", err)
	}
	today = orToday(today)

	key := "insights" + keySeparator + today.Format("2006-01") + keySeparator + idKey(accountID)
	return cached(s, user, key, func() (core.CategoryInsights, error) {
		from, to := monthBounds(today, 0)
		entries, err := s.entries(ctx, user, accountID, from, to)
		if err != nil {
			return core.CategoryInsights{}, err
		}

		byCategory := make(map[string]*core.CategoryStats)
		var order []string
		var overall int64
		for _, e := range entries {
			if e.Kind != core.Expense {
				continue
			}
			catKey := idKey(e.CategoryID)
			c, ok := byCategory[catKey]
			if !ok {
				c = &core.CategoryStats{CategoryID: e.CategoryID, Name: e.Category, Largest: core.Cents(e.Cents), Smallest: core.Cents(e.Cents)}
				byCategory[catKey] = c
				order = append(order, catKey)
			}
			c.Total = c.Total.Add(core.Cents(e.Cents))
			c.Count++
			if e.Cents > c.Largest.Cents {
				c.Largest = core.Cents(e.Cents)
			}
			if e.Cents < c.Smallest.Cents {
				c.Smallest = core.Cents(e.Cents)
			}
			overall += e.Cents
		}

		out := core.CategoryInsights{
			TotalSpending: core.Cents(overall),
			Categories:    make([]core.CategoryStats, 0, len(order)),
		}
		for _, catKey := range order {
			c := byCategory[catKey]
			c.Average = core.Cents(divRound(c.Total.Cents, int64(c.Count)))
			c.PercentageOfTotal = percent(c.Total.Cents, overall)
			out.Categories = append(out.Categories, *c)
		}
		sort.SliceStable(out.Categories, func(i, j int) bool {
			return out.Categories[i].Total.Cents > out.Categories[j].Total.Cents
		})
		out.CategoryCount = len(out.Categories)
		return out, nil
	})
}

// TransactionStats summarizes the last days days up to today, both ends
// included.
func (s *DashboardService) TransactionStats(ctx context.Context, user core.UserID, accountID *int64, days int, today core.Date) (core.TransactionStats, error) {
	if err := user.Validate(); err != nil {
		return core.TransactionStats{}, core.Invalid("user_id", err)
	}
	if days <= 0 {
		days = defaultStatsDays
	}
	if days > maxStatsDays {
		return core.TransactionStats{}, core.Invalid("days", fmt.Errorf("must be at most %d", maxStatsDays))
	}
	today = orToday(today)

	key := "stats" + keySeparator + strconv.Itoa(days) + keySeparator + today.String() + keySeparator + idKey(accountID)
	return cached(s, user, key, func() (core.TransactionStats, error) {
		entries, err := s.entries(ctx, user, accountID, today.AddDays(-days), today)
		if err != nil {
			return core.TransactionStats{}, err
		}

		var incomes, expenses []ledgerEntry
		for _, e := range entries {
			if e.Kind == core.Income {
				incomes = append(incomes, e)
			} else {
				expenses = append(expenses, e)
			}
		}
		st := core.TransactionStats{
			PeriodDays: days,
			Income:     kindStats(incomes),
			Expense:    kindStats(expenses),
			Outliers:   []core.Outlier{},
		}
		st.DailyAverageExpense = core.Cents(divRound(st.Expense.Total.Cents, int64(days)))

		if sd := st.Expense.StdDeviation.Cents; sd > 0 && st.Expense.Average.Cents > 0 {
			threshold := meanOf(centsOf(expenses)) + 2*stdDev(centsOf(expenses), false)
			for _, e := range expenses {
				if float64(e.Cents) < threshold {
					continue
				}
				st.Outliers = append(st.Outliers, core.Outlier{
					TransactionID: e.ID,
					Date:          e.Date,
					Amount:        core.Cents(e.Cents),
					Category:      e.Category,
					Note:          e.Note,
				})
				if len(st.Outliers) == maxOutliers {
					break
				}
			}
		}
		return st, nil
	})
}

// ComparePeriods sets from..to against the period of the same length that
// ends the day before from. Zero bounds default to the 30 days ending today.
func (s *DashboardService) ComparePeriods(ctx context.Context, user core.UserID, accountID *int64, from, to core.Date) (core.PeriodComparison, error) {
	if to.IsZero() {
		to = core.Today()
	}
	if from.IsZero() {
		from = to.AddDays(-(defaultCompareDays - 1))
	}
	if err := validateDashboard(user, DashboardFilter{From: from, To: to}); err != nil {
		return core.PeriodComparison{}, err
	}

	length := daysBetween(from, to) + 1
	prevFrom, prevTo := from.AddDays(-length), from.AddDays(-1)

	key := "compare" + keySeparator + from.String() + keySeparator + to.String() + keySeparator + idKey(accountID)
	return cached(s, user, key, func() (core.PeriodComparison, error) {
		entries, err := s.entries(ctx, user, accountID, prevFrom, to)
		if err != nil {
			return core.PeriodComparison{}, err
		}
		cmp := core.PeriodComparison{
			Current:  core.PeriodTotals{From: from, To: to},
			Previous: core.PeriodTotals{From: prevFrom, To: prevTo},
		}
		for _, e := range entries {
			p := &cmp.Current
			if e.Date.Before(from) {
				p = &cmp.Previous
			}
			if e.Kind == core.Income {
				p.Income = p.Income.Add(core.Cents(e.Cents))
			} else {
				p.Expense = p.Expense.Add(core.Cents(e.Cents))
			}
			p.Count++
		}
		for _, p := range []*core.PeriodTotals{&cmp.Current, &cmp.Previous} {
			p.Net = p.Income.Sub(p.Expense)
		}

		cmp.IncomeChange = changeRate(cmp.Current.Income, cmp.Previous.Income)
		cmp.ExpenseChange = changeRate(cmp.Current.Expense, cmp.Previous.Expense)
		cmp.NetChange = cmp.Current.Net.Sub(cmp.Previous.Net)
		return cmp, nil
	})
}

func (s *DashboardService) totalBalance(ctx context.Context, user core.UserID) (int64, error) {
	accounts, err := s.storage.Queries().ListAccounts(ctx, string(user))
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}
	var total int64
	for _, a := range accounts {
		total += a.BalanceCents
	}
	return total, nil
}

func kindStats(entries []ledgerEntry) core.KindStats {
	if len(entries) == 0 {
		return core.KindStats{}
	}
	st := core.KindStats{Count: len(entries), Largest: core.Cents(entries[0].Cents), Smallest: core.Cents(entries[0].Cents)}
	for _, e := range entries {
		st.Total = st.Total.Add(core.Cents(e.Cents))
		if e.Cents > st.Largest.Cents {
			st.Largest = core.Cents(e.Cents)
		}
		if e.Cents < st.Smallest.Cents {
			st.Smallest = core.Cents(e.Cents)
		}
	}
	st.Average = core.Cents(divRound(st.Total.Cents, int64(st.Count)))
	st.StdDeviation = core.Cents(int64(math.Round(stdDev(centsOf(entries), false))))
	return st
}

func changeRate(current, previous core.Money) *float64 {
	if previous.Cents == 0 {
		return nil
	}
	rate := percent(current.Cents-previous.Cents, previous.Cents)
	return &rate
}

// monthBounds returns the first and last day of the month offset months
// away from the month of d.
func monthBounds(d core.Date, offset int) (core.Date, core.Date) {
	first := core.DateOf(core.NewDate(d.Year(), d.Month(), 1).AddDate(0, offset, 0))
	last := core.NewDate(first.Year(), first.Month(), core.DaysIn(first.Year(), time.Month(first.Month())))
	return first, last
}

func daysBetween(from, to core.Date) int {
	return int(to.Sub(from.Time).Hours() / 24)
}

// isoWeekday maps Monday to 0 and Sunday to 6.
func isoWeekday(d core.Date) int {
	return (int(d.Weekday()) + 6) % 7
}

func weekStart(d core.Date) core.Date {
	return d.AddDays(-isoWeekday(d))
}

func orToday(d core.Date) core.Date {
	if d.IsZero() {
		return core.Today()
	}
	return d
}

func idKey(id *int64) string {
	if id == nil {
		return "*"
	}
	return strconv.FormatInt(*id, 10)
}

func nullableID(v int64, valid bool) *int64 {
	if !valid {
		return nil
	}
	return &v
}

// divRound divides money by a count, rounding half away from zero.
func divRound(num, den int64) int64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromInt(num).Div(decimal.NewFromInt(den)).Round(0).IntPart()
}

// percent returns num/den as a percentage rounded to two decimals.
func percent(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromInt(num).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(den)).Round(2).InexactFloat64()
}

func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

func centsOf(entries []ledgerEntry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = float64(e.Cents)
	}
	return out
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population standard deviation, or the sample one when
// sample is set.
func stdDev(values []float64, sample bool) float64 {
	n := len(values)
	if n == 0 || (sample && n < 2) {
		return 0
	}
	mean := meanOf(values)
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	if sample {
		return math.Sqrt(sq / float64(n-1))
	}
	return math.Sqrt(sq / float64(n))
}

// linearSlope is the least squares slope of values over x = 0..n-1.
func linearSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	xMean := (n - 1) / 2
	yMean := meanOf(values)
	var num, den float64
	for i, v := range values {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	return num / den
}
