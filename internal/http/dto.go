package http

import (
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type accountResponse struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Type           core.AccountType `json:"type"`
	OpeningBalance core.Money       `json:"opening_balance"`
	Balance        core.Money       `json:"balance"`
	CreatedAt      time.Time        `json:"created_at"`
}

func newAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Type:           a.Type,
		OpeningBalance: a.OpeningBalance,
		Balance:        a.Balance,
		CreatedAt:      a.CreatedAt,
	}
}

type createAccountRequest struct {
	Name           string           `json:"name"`
	Type           core.AccountType `json:"type"`
	OpeningBalance core.Money       `json:"opening_balance"`
}

func (req createAccountRequest) toCore(user core.UserID) core.Account {
	return core.Account{
		UserID:         user,
		Name:           sanitizeInput(req.Name),
		Type:           req.Type,
		OpeningBalance: req.OpeningBalance,
	}
}

type updateAccountRequest struct {
	Name *string           `json:"name"`
	Type *core.AccountType `json:"type"`
}

func (req updateAccountRequest) toPatch() services.AccountPatch {
	return services.AccountPatch{Name: sanitizePtr(req.Name), Type: req.Type}
}

type categoryResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      core.Kind `json:"kind"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

func newCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Kind:      c.Kind,
		Color:     c.Color,
		Icon:      c.Icon,
		CreatedAt: c.CreatedAt,
	}
}

type createCategoryRequest struct {
	Name  string    `json:"name"`
	Kind  core.Kind `json:"kind"`
	Color string    `json:"color"`
	Icon  string    `json:"icon"`
}

func (req createCategoryRequest) toCore(user core.UserID) core.Category {
	return core.Category{
		UserID: user,
		Name:   sanitizeInput(req.Name),
		Kind:   req.Kind,
		Color:  sanitizeInput(req.Color),
		Icon:   sanitizeInput(req.Icon),
	}
}

type updateCategoryRequest struct {
	Name  *string    `json:"name"`
	Kind  *core.Kind `json:"kind"`
	Color *string    `json:"color"`
	Icon  *string    `json:"icon"`
}

func (req updateCategoryRequest) toPatch() services.CategoryPatch {
	return services.CategoryPatch{
		Name:  sanitizePtr(req.Name),
		Kind:  req.Kind,
		Color: sanitizePtr(req.Color),
		Icon:  sanitizePtr(req.Icon),
	}
}

type transactionResponse struct {
	ID          int64      `json:"id"`
	AccountID   int64      `json:"account_id"`
	CategoryID  *int64     `json:"category_id"`
	Kind        core.Kind  `json:"kind"`
	Amount      core.Money `json:"amount"`
	Note        string     `json:"note"`
	Date        core.Date  `json:"date"`
	RecurringID *int64     `json:"recurring_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		CategoryID:  tx.CategoryID,
		Kind:        tx.Kind,
		Amount:      tx.Amount,
		Note:        tx.Note,
		Date:        tx.Date,
		RecurringID: tx.RecurringID,
		CreatedAt:   tx.CreatedAt,
	}
}

type createTransactionRequest struct {
	AccountID  int64      `json:"account_id"`
	CategoryID *int64     `json:"category_id"`
	Kind       core.Kind  `json:"kind"`
	Amount     core.Money `json:"amount"`
	Note       string     `json:"note"`
	Date       core.Date  `json:"date"`
}

// toCore defaults a missing date to today.
func (req createTransactionRequest) toCore(user core.UserID) core.Transaction {
	date := req.Date
	if date.IsZero() {
		date = core.Today()
	}
	return core.Transaction{
		UserID:     user,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Kind:       req.Kind,
		Amount:     req.Amount,
		Note:       sanitizeInput(req.Note),
		Date:       date,
	}
}

type updateTransactionRequest struct {
	AccountID  *int64          `json:"account_id"`
	CategoryID optional[int64] `json:"category_id"`
	Kind       *core.Kind      `json:"kind"`
	Amount     *core.Money     `json:"amount"`
	Note       *string         `json:"note"`
	Date       *core.Date      `json:"date"`
}

// toPatch maps "category_id": null onto clearing the category.
func (req updateTransactionRequest) toPatch() services.TransactionPatch {
	p := services.TransactionPatch{
		AccountID: req.AccountID,
		Kind:      req.Kind,
		Amount:    req.Amount,
		Note:      sanitizePtr(req.Note),
		Date:      req.Date,
	}
	if req.CategoryID.Set {
		if req.CategoryID.Null {
			p.ClearCategory = true
		} else {
			id := req.CategoryID.Value
			p.CategoryID = &id
		}
	}
	return p
}

type recurringResponse struct {
	ID                int64          `json:"id"`
	AccountID         int64          `json:"account_id"`
	CategoryID        *int64         `json:"category_id"`
	Kind              core.Kind      `json:"kind"`
	Amount            core.Money     `json:"amount"`
	Note              string         `json:"note"`
	Frequency         core.Frequency `json:"frequency"`
	StartDate         core.Date      `json:"start_date"`
	EndDate           core.Date      `json:"end_date"`
	LastProcessedDate core.Date      `json:"last_processed_date"`
	CreatedAt         time.Time      `json:"created_at"`
}

func newRecurringResponse(rt core.RecurringTemplate) recurringResponse {
	return recurringResponse{
		ID:                rt.ID,
		AccountID:         rt.AccountID,
		CategoryID:        rt.CategoryID,
		Kind:              rt.Kind,
		Amount:            rt.Amount,
		Note:              rt.Note,
		Frequency:         rt.Frequency,
		StartDate:         rt.StartDate,
		EndDate:           rt.EndDate,
		LastProcessedDate: rt.LastProcessedDate,
		CreatedAt:         rt.CreatedAt,
	}
}

type createRecurringRequest struct {
	AccountID  int64          `json:"account_id"`
	CategoryID *int64         `json:"category_id"`
	Kind       core.Kind      `json:"kind"`
	Amount     core.Money     `json:"amount"`
	Note       string         `json:"note"`
	Frequency  core.Frequency `json:"frequency"`
	StartDate  core.Date      `json:"start_date"`
	EndDate    core.Date      `json:"end_date"`
}

func (req createRecurringRequest) toCore(user core.UserID) core.RecurringTemplate {
	return core.RecurringTemplate{
		UserID:     user,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Kind:       req.Kind,
		Amount:     req.Amount,
		Note:       sanitizeInput(req.Note),
		Frequency:  req.Frequency,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	}
}

type updateRecurringRequest struct {
	AccountID  *int64              `json:"account_id"`
	CategoryID optional[int64]     `json:"category_id"`
	Kind       *core.Kind          `json:"kind"`
	Amount     *core.Money         `json:"amount"`
	Note       *string             `json:"note"`
	Frequency  *core.Frequency     `json:"frequency"`
	StartDate  *core.Date          `json:"start_date"`
	EndDate    optional[core.Date] `json:"end_date"`
}

func (req updateRecurringRequest) toPatch() services.RecurringPatch {
	p := services.RecurringPatch{
		AccountID: req.AccountID,
		Kind:      req.Kind,
		Amount:    req.Amount,
		Note:      sanitizePtr(req.Note),
		Frequency: req.Frequency,
		StartDate: req.StartDate,
	}
	if req.CategoryID.Set {
		if req.CategoryID.Null {
			p.ClearCategory = true
		} else {
			id := req.CategoryID.Value
			p.CategoryID = &id
		}
	}
	if req.EndDate.Set {
		if req.EndDate.Null || req.EndDate.Value.IsZero() {
			p.ClearEndDate = true
		} else {
			end := req.EndDate.Value
			p.EndDate = &end
		}
	}
	return p
}

type budgetResponse struct {
	ID             int64      `json:"id"`
	CategoryID     int64      `json:"category_id"`
	Amount         core.Money `json:"amount"`
	CurrentExpense core.Money `json:"current_expense"`
	Remaining      core.Money `json:"remaining"`
	StartDate      core.Date  `json:"start_date"`
	EndDate        core.Date  `json:"end_date"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:             b.ID,
		CategoryID:     b.CategoryID,
		Amount:         b.Limit,
		CurrentExpense: b.CurrentExpense,
		Remaining:      b.Remaining(),
		StartDate:      b.StartDate,
		EndDate:        b.EndDate,
		CreatedAt:      b.CreatedAt,
	}
}

type createBudgetRequest struct {
	CategoryID int64      `json:"category_id"`
	Amount     core.Money `json:"amount"`
	StartDate  core.Date  `json:"start_date"`
	EndDate    core.Date  `json:"end_date"`
}

func (req createBudgetRequest) toCore(user core.UserID) core.Budget {
	return core.Budget{
		UserID:     user,
		CategoryID: req.CategoryID,
		Limit:      req.Amount,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	}
}

type updateBudgetRequest struct {
	CategoryID *int64      `json:"category_id"`
	Amount     *core.Money `json:"amount"`
	StartDate  *core.Date  `json:"start_date"`
	EndDate    *core.Date  `json:"end_date"`
}

func (req updateBudgetRequest) toPatch() services.BudgetPatch {
	return services.BudgetPatch{
		CategoryID: req.CategoryID,
		Limit:      req.Amount,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	}
}

func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
