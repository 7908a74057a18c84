package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	Weekly  Frequency = "weekly"
	Daily   Frequency = "daily"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	AccountSavings AccountType = "savings"
	AccountCurrent AccountType = "current"
	AccountCredit  AccountType = "credit"
	AccountCash    AccountType = "cash"
	AccountOther   AccountType = "other"
)

const (
	maxNameLength = 100
	maxNoteLength = 500

	DefaultCategoryColor = "#000000"
	DefaultCategoryIcon  = "category"
)

type (
	// UserID is the opaque identity of the owner of every ledger entity.
	UserID string

	Frequency   string
	Kind        string
	AccountType string

	Account struct {
		ID             int64
		UserID         UserID
		Name           string
		Type           AccountType
		OpeningBalance Money
		Balance        Money
		CreatedAt      time.Time
	}

	Category struct {
		ID        int64
		UserID    UserID
		Name      string
		Kind      Kind
		Color     string
		Icon      string
		CreatedAt time.Time
	}

	Transaction struct {
		ID          int64
		UserID      UserID
		AccountID   int64
		CategoryID  *int64
		Kind        Kind
		Amount      Money
		Note        string
		Date        Date
		RecurringID *int64 // template that materialized it, if any
		CreatedAt   time.Time
	}

	RecurringTemplate struct {
		ID                int64
		UserID            UserID
		AccountID         int64
		CategoryID        *int64
		Kind              Kind
		Amount            Money
		Note              string
		Frequency         Frequency
		StartDate         Date
		EndDate           Date // zero means open-ended
		LastProcessedDate Date // zero until the first emission
		CreatedAt         time.Time
	}

	Budget struct {
		ID             int64
		UserID         UserID
		CategoryID     int64
		Limit          Money
		CurrentExpense Money
		StartDate      Date
		EndDate        Date
		CreatedAt      time.Time
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidType      = errors.New("invalid account type")
	ErrInvalidColor     = errors.New("invalid color")
	ErrMissingAccount   = errors.New("account is required")
	ErrMissingCategory  = errors.New("category is required")
	ErrMissingUser      = errors.New("user is required")
	ErrDateRange        = errors.New("end date must not be before start date")
	ErrUnknownReference = errors.New("does not exist")
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	}
	return ErrInvalidKind
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	}
	return ErrInvalidFrequency
}

func (t AccountType) Validate() error {
	switch t {
	case AccountSavings, AccountCurrent, AccountCredit, AccountCash, AccountOther:
		return nil
	}
	return ErrInvalidType
}

func (u UserID) Validate() error {
	if strings.TrimSpace(string(u)) == "" {
		return ErrMissingUser
	}
	return nil
}

func validateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return Invalid(field, ErrEmptyName)
	}
	if len(name) > maxNameLength {
		return Invalid(field, fmt.Errorf("too long (max %d characters)", maxNameLength))
	}
	return nil
}

func validateNote(note string) error {
	if len(note) > maxNoteLength {
		return Invalid("note", fmt.Errorf("too long (max %d characters)", maxNoteLength))
	}
	return nil
}

func (a Account) Validate() error {
	if err := a.UserID.Validate(); err != nil {
		return Invalid("user_id", err)
	}
	if err := validateName("name", a.Name); err != nil {
		return err
	}
	if err := a.Type.Validate(); err != nil {
		return Invalid("type", err)
	}
	if !a.OpeningBalance.InRange() {
		return Invalid("opening_balance", ErrAmountOutOfRange)
	}
	return nil
}

func (c Category) Validate() error {
	if err := c.UserID.Validate(); err != nil {
		return Invalid("user_id", err)
	}
	if err := validateName("name", c.Name); err != nil {
		return err
	}
	if err := c.Kind.Validate(); err != nil {
		return Invalid("kind", err)
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return Invalid("color", ErrInvalidColor)
	}
	return nil
}

// Validate checks the fields a caller controls. Ownership of the referenced
// account and category is checked against storage by the services.
func (t Transaction) Validate() error {
	if err := t.UserID.Validate(); err != nil {
		return Invalid("user_id", err)
	}
	if t.AccountID <= 0 {
		return Invalid("account_id", ErrMissingAccount)
	}
	if err := t.Kind.Validate(); err != nil {
		return Invalid("kind", err)
	}
	if err := t.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if err := t.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	return validateNote(t.Note)
}

func (rt RecurringTemplate) Validate() error {
	if err := rt.UserID.Validate(); err != nil {
		return Invalid("user_id", err)
	}
	if rt.AccountID <= 0 {
		return Invalid("account_id", ErrMissingAccount)
	}
	if err := rt.Kind.Validate(); err != nil {
		return Invalid("kind", err)
	}
	if err := rt.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if err := rt.Frequency.Validate(); err != nil {
		return Invalid("frequency", err)
	}
	if err := rt.StartDate.Validate(); err != nil {
		return Invalid("start_date", err)
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate) {
		return Invalid("end_date", ErrDateRange)
	}
	return validateNote(rt.Note)
}

func (b Budget) Validate() error {
	if err := b.UserID.Validate(); err != nil {
		return Invalid("user_id", err)
	}
	if b.CategoryID <= 0 {
		return Invalid("category_id", ErrMissingCategory)
	}
	if b.Limit.IsNegative() || !b.Limit.InRange() {
		return Invalid("amount", ErrInvalidAmount)
	}
	if err := b.StartDate.Validate(); err != nil {
		return Invalid("start_date", err)
	}
	if err := b.EndDate.Validate(); err != nil {
		return Invalid("end_date", err)
	}
	if b.EndDate.Before(b.StartDate) {
		return Invalid("end_date", ErrDateRange)
	}
	return nil
}

// Remaining may be negative when the budget is overspent.
func (b Budget) Remaining() Money {
	return b.Limit.Sub(b.CurrentExpense)
}

// Covers reports whether tx counts towards the budget's current expense.
func (b Budget) Covers(tx Transaction) bool {
	if tx.Kind != Expense || tx.CategoryID == nil {
		return false
	}
	return tx.UserID == b.UserID &&
		*tx.CategoryID == b.CategoryID &&
		!tx.Date.Before(b.StartDate) &&
		!tx.Date.After(b.EndDate)
}

// Signed returns the effect of the transaction on its account balance.
func (t Transaction) Signed() Money {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsActive reports whether the template can emit anything on day today.
func (rt RecurringTemplate) IsActive(today Date) bool {
	if rt.StartDate.After(today) {
		return false
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(today) {
		return false
	}
	return true
}
