package core

// Health ratings, best first.
const (
	RatingExcellent        = "Excellent"
	RatingGood             = "Good"
	RatingFair             = "Fair"
	RatingNeedsImprovement = "Needs Improvement"
	RatingCritical         = "Critical"
)

// HealthRating maps a 0-100 health score to its rating.
func HealthRating(score float64) string {
	switch {
	case score >= 80:
		return RatingExcellent
	case score >= 60:
		return RatingGood
	case score >= 40:
		return RatingFair
	case score >= 20:
		return RatingNeedsImprovement
	default:
		return RatingCritical
	}
}

// FinancialHealth is a 0-100 score built from savings rate (40 points),
// budget adherence (30), spending stability (20) and balance sign (10).
type FinancialHealth struct {
	SavingsRate       float64 `json:"savings_rate"`
	SavingsPoints     float64 `json:"savings_points"`
	BudgetAdherence   float64 `json:"budget_adherence"`
	BudgetPoints      float64 `json:"budget_points"`
	SpendingStability float64 `json:"spending_stability"`
	StabilityPoints   float64 `json:"stability_points"`
	TotalBalance      Money   `json:"total_balance"`
	BalancePoints     float64 `json:"balance_points"`
	TotalScore        float64 `json:"total_score"`
	Rating            string  `json:"rating"`
}

// Spending trend directions.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// SpendingGrowth compares this month's expenses with last month and the
// same month last year. MonthlySlope is the least squares slope of the
// monthly expense over the trailing months, per month.
type SpendingGrowth struct {
	CurrentMonth      Money   `json:"current_month"`
	LastMonth         Money   `json:"last_month"`
	MoMGrowthRate     float64 `json:"mom_growth_rate"`
	LastYearSameMonth Money   `json:"last_year_same_month"`
	YoYGrowthRate     float64 `json:"yoy_growth_rate"`
	Trend             string  `json:"trend"`
	MonthlySlope      Money   `json:"monthly_slope"`
}

type ForecastMonth struct {
	Month            string `json:"month"` // YYYY-MM
	ProjectedIncome  Money  `json:"projected_income"`
	ProjectedExpense Money  `json:"projected_expense"`
	ProjectedNet     Money  `json:"projected_net"`
	ProjectedBalance Money  `json:"projected_balance"`
}

// CashFlowForecast projects the average monthly net of the trailing months
// onto the current total balance.
type CashFlowForecast struct {
	CurrentBalance    Money           `json:"current_balance"`
	AvgMonthlyIncome  Money           `json:"avg_monthly_income"`
	AvgMonthlyExpense Money           `json:"avg_monthly_expense"`
	Forecasts         []ForecastMonth `json:"forecasts"`
}

// Burn rate statuses.
const (
	BurnOnTrack      = "on_track"
	BurnOnTrackHigh  = "on_track_high"
	BurnOverspending = "overspending"
)

// BudgetBurn is how fast one running budget is being consumed.
type BudgetBurn struct {
	BudgetID           int64   `json:"budget_id"`
	CategoryName       string  `json:"category_name"`
	Limit              Money   `json:"limit"`
	CurrentExpense     Money   `json:"current_expense"`
	DailyBurnRate      Money   `json:"daily_burn_rate"`
	ProjectedTotal     Money   `json:"projected_total"`
	DaysElapsed        int     `json:"days_elapsed"`
	DaysRemaining      int     `json:"days_remaining"`
	DaysToExhaust      *int    `json:"days_to_exhaust"`
	PercentUsed        float64 `json:"percent_used"`
	PercentTimeElapsed float64 `json:"percent_time_elapsed"`
	Status             string  `json:"status"`
}

type WeekdaySpending struct {
	Day         string `json:"day"`
	AvgSpending Money  `json:"avg_spending"`
	Days        int    `json:"days"`
}

type WeekSpending struct {
	WeekStart        Date  `json:"week_start"`
	TotalSpending    Money `json:"total_spending"`
	TransactionCount int   `json:"transaction_count"`
}

// SpendingPatterns groups recent expenses by weekday and by ISO week.
type SpendingPatterns struct {
	Daily  []WeekdaySpending `json:"daily_pattern"`
	Weekly []WeekSpending    `json:"weekly_pattern"`
}

type CategoryStats struct {
	CategoryID        *int64  `json:"category_id"`
	Name              string  `json:"name"`
	Total             Money   `json:"total_spent"`
	PercentageOfTotal float64 `json:"percentage_of_total"`
	Count             int     `json:"transaction_count"`
	Average           Money   `json:"average_transaction"`
	Largest           Money   `json:"largest_transaction"`
	Smallest          Money   `json:"smallest_transaction"`
}

// CategoryInsights details this month's expenses per category, largest first.
type CategoryInsights struct {
	TotalSpending Money           `json:"total_spending"`
	CategoryCount int             `json:"category_count"`
	Categories    []CategoryStats `json:"categories"`
}

type KindStats struct {
	Total        Money `json:"total"`
	Count        int   `json:"count"`
	Average      Money `json:"average"`
	Largest      Money `json:"largest"`
	Smallest     Money `json:"smallest"`
	StdDeviation Money `json:"std_deviation"`
}

type Outlier struct {
	TransactionID int64  `json:"transaction_id"`
	Date          Date   `json:"date"`
	Amount        Money  `json:"amount"`
	Category      string `json:"category"`
	Note          string `json:"note"`
}

// TransactionStats summarizes the transactions of the trailing period.
// Outliers are expenses at least two standard deviations above the mean.
type TransactionStats struct {
	PeriodDays          int       `json:"period_days"`
	Income              KindStats `json:"income"`
	Expense             KindStats `json:"expense"`
	Outliers            []Outlier `json:"outliers"`
	DailyAverageExpense Money     `json:"daily_average_expense"`
}

type PeriodTotals struct {
	From    Date  `json:"from"`
	To      Date  `json:"to"`
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Net     Money `json:"net"`
	Count   int   `json:"count"`
}

// PeriodComparison sets a period against the one of equal length right
// before it. Change rates are nil when the previous value is zero.
type PeriodComparison struct {
	Current       PeriodTotals `json:"current"`
	Previous      PeriodTotals `json:"previous"`
	IncomeChange  *float64     `json:"income_change"`
	ExpenseChange *float64     `json:"expense_change"`
	NetChange     Money        `json:"net_change"`
}
