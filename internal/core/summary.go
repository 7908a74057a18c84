package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID *int64 `json:"category_id"`
	Name       string `json:"name"`
	Kind       Kind   `json:"kind"`
	Amount     Money  `json:"amount"`
	Count      int    `json:"count"`
}

type AccountBalance struct {
	AccountID int64       `json:"account_id"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	Balance   Money       `json:"balance"`
}

// Summary is the headline view of a user's ledger.
type Summary struct {
	TotalIncome  Money            `json:"total_income"`
	TotalExpense Money            `json:"total_expense"`
	Net          Money            `json:"net"`
	Accounts     []AccountBalance `json:"accounts"`
}

type BudgetStatus struct {
	BudgetID       int64  `json:"budget_id"`
	CategoryID     int64  `json:"category_id"`
	CategoryName   string `json:"category_name"`
	StartDate      Date   `json:"start_date"`
	EndDate        Date   `json:"end_date"`
	Limit          Money  `json:"limit"`
	CurrentExpense Money  `json:"current_expense"`
	Remaining      Money  `json:"remaining"`
	OverLimit      bool   `json:"over_limit"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year    int   `json:"year"`
	Month   int   `json:"month"` // 1-12
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Net     Money `json:"net"`
}

// AuditDrift is one cached aggregate that disagrees with the transactions.
type AuditDrift struct {
	Entity     string `json:"entity"` // "account" or "budget"
	ID         int64  `json:"id"`
	UserID     UserID `json:"user_id"`
	Cached     Money  `json:"cached"`
	Recomputed Money  `json:"recomputed"`
}
