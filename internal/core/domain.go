package core

import (
	"errors"
	"time"
)

const (
	Regular   IncomeType = "REGULAR"
	Irregular IncomeType = "IRREGULAR"
)

const (
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// DateLayout is the wire format for calendar dates in forms and storage.
const DateLayout = "2006-01-02"

type (
	IncomeType string
	Frequency  string

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Email        string
		Name         string
		PasswordHash string
		CreatedAt    time.Time
	}

	Category struct {
		ID     int64
		UserID int64
		Name   string
	}

	// Budget is a monthly allocation for a category. A category carries at
	// most one budget; the unique constraint on category_id backs that up.
	Budget struct {
		ID           int64
		UserID       int64
		CategoryID   int64
		CategoryName string
		Amount       Money
		YearMonth    string
	}

	Expense struct {
		ID           int64
		UserID       int64
		CategoryID   int64
		CategoryName string
		Name         string
		Amount       Money
		Date         time.Time
		YearMonth    string
	}

	// Income has a start date always; Frequency and EndDate are meaningful
	// only for Regular incomes and stay zero otherwise.
	Income struct {
		ID           int64
		UserID       int64
		CategoryID   int64
		CategoryName string
		Name         string
		Amount       Money
		Type         IncomeType
		Frequency    Frequency
		StartDate    time.Time
		EndDate      time.Time
		YearMonth    string
	}

	// Debt tracks the borrowed principal; the outstanding amount is derived
	// from payments, the principal itself is never mutated by a payment.
	Debt struct {
		ID           int64
		UserID       int64
		CategoryID   int64
		CategoryName string
		Name         string
		Amount       Money
		InterestRate float64
		TotalPaid    Money
		Payments     []DebtPayment
	}

	DebtPayment struct {
		ID     int64
		DebtID int64
		Amount Money
		Date   time.Time
	}

	SavingsGoal struct {
		ID            int64
		UserID        int64
		CategoryID    int64
		CategoryName  string
		Name          string
		Target        Money
		TotalSaved    Money
		Contributions []Contribution
	}

	Contribution struct {
		ID     int64
		GoalID int64
		Amount Money
		Date   time.Time
	}

	// MonthSummary is one exported report row: per-user totals for a single
	// calendar month.
	MonthSummary struct {
		UserID       int64
		YearMonth    string
		ExpenseTotal Money
		IncomeTotal  Money
		BudgetTotal  Money
	}

	// BudgetUsage pairs a category budget with what was actually spent in a
	// given month.
	BudgetUsage struct {
		CategoryID   int64
		CategoryName string
		Allocated    Money
		Spent        Money
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t IncomeType) Valid() bool {
	return t == Regular || t == Irregular
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Remaining is the unspent part of the allocation, never negative.
func (u BudgetUsage) Remaining() Money {
	rem := u.Allocated.Cents - u.Spent.Cents
	if rem < 0 {
		rem = 0
	}
	return Money{Cents: rem}
}

// Outstanding is principal minus payments, floored at zero.
func (d Debt) Outstanding() Money {
	rem := d.Amount.Cents - d.TotalPaid.Cents
	if rem < 0 {
		rem = 0
	}
	return Money{Cents: rem}
}

// Progress reports how much of the target has been saved, in percent capped
// at 100.
func (g SavingsGoal) Progress() int {
	if g.Target.Cents <= 0 {
		return 0
	}
	p := int(g.TotalSaved.Cents * 100 / g.Target.Cents)
	if p > 100 {
		p = 100
	}
	return p
}
