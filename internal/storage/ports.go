// Package storage defines the store ports of the dashboard and their three
// implementations: memory (default, also the test double), sqlite and
// postgres. All user-scoped reads filter by user id inside the query.
package storage

import (
	"context"
	"errors"

	"bilancio/internal/core"
)

var (
	// ErrNotFound means the row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness or reference constraint rejected the
	// write (duplicate email, second budget for a category, category still
	// referenced).
	ErrConflict = errors.New("conflict")
)

// PageSize is the fixed page length of every list page.
const PageSize = 10

// Filter scopes a paginated list read: owning user, optional
// case-insensitive substring over the entity's name and category name, and
// a 1-based page.
type Filter struct {
	UserID int64
	Query  string
	Page   int
}

// Offset converts the 1-based page to a row offset; pages below 1 read as
// the first page.
func (f Filter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * PageSize
}

// PageCount is ceil(total / PageSize).
func PageCount(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (int64, error)
		UserByEmail(ctx context.Context, email string) (core.User, error)
		UserByID(ctx context.Context, id int64) (core.User, error)
		UserIDs(ctx context.Context) ([]int64, error)
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) (int64, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		// DeleteCategory fails with ErrConflict while budgets, expenses,
		// incomes, debts or goals still reference the category.
		DeleteCategory(ctx context.Context, id int64) error
		CategoryByID(ctx context.Context, id int64) (core.Category, error)
		Categories(ctx context.Context, userID int64) ([]core.Category, error)
	}

	BudgetStore interface {
		// CreateBudget fails with ErrConflict when the category already has
		// a budget.
		CreateBudget(ctx context.Context, b core.Budget) (int64, error)
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id int64) error
		BudgetByID(ctx context.Context, id int64) (core.Budget, error)
		Budgets(ctx context.Context, f Filter) ([]core.Budget, error)
		CountBudgets(ctx context.Context, f Filter) (int, error)
		BudgetsByUser(ctx context.Context, userID int64) ([]core.Budget, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (int64, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id int64) error
		ExpenseByID(ctx context.Context, id int64) (core.Expense, error)
		Expenses(ctx context.Context, f Filter) ([]core.Expense, error)
		CountExpenses(ctx context.Context, f Filter) (int, error)
	}

	IncomeStore interface {
		CreateIncome(ctx context.Context, in core.Income) (int64, error)
		UpdateIncome(ctx context.Context, in core.Income) error
		DeleteIncome(ctx context.Context, id int64) error
		IncomeByID(ctx context.Context, id int64) (core.Income, error)
		Incomes(ctx context.Context, f Filter) ([]core.Income, error)
		CountIncomes(ctx context.Context, f Filter) (int, error)
	}

	DebtStore interface {
		CreateDebt(ctx context.Context, d core.Debt) (int64, error)
		UpdateDebt(ctx context.Context, d core.Debt) error
		DeleteDebt(ctx context.Context, id int64) error
		// DebtByID loads the payment list; Debts loads only the summed
		// TotalPaid per row.
		DebtByID(ctx context.Context, id int64) (core.Debt, error)
		Debts(ctx context.Context, f Filter) ([]core.Debt, error)
		CountDebts(ctx context.Context, f Filter) (int, error)
		CreateDebtPayment(ctx context.Context, p core.DebtPayment) (int64, error)
		DeleteDebtPayment(ctx context.Context, id int64) error
		DebtPaymentByID(ctx context.Context, id int64) (core.DebtPayment, error)
	}

	SavingsStore interface {
		CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (int64, error)
		UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error
		DeleteSavingsGoal(ctx context.Context, id int64) error
		SavingsGoalByID(ctx context.Context, id int64) (core.SavingsGoal, error)
		SavingsGoals(ctx context.Context, f Filter) ([]core.SavingsGoal, error)
		CountSavingsGoals(ctx context.Context, f Filter) (int, error)
		CreateContribution(ctx context.Context, c core.Contribution) (int64, error)
		DeleteContribution(ctx context.Context, id int64) error
		ContributionByID(ctx context.Context, id int64) (core.Contribution, error)
	}

	// ReportStore serves the dashboard and the snapshot worker. Bucket maps
	// are sparse; callers zero-fill with core.FillMonthBuckets.
	ReportStore interface {
		MonthlyExpenseTotals(ctx context.Context, userID int64, from, to string) (map[string]int64, error)
		MonthlyIncomeTotals(ctx context.Context, userID int64, from, to string) (map[string]int64, error)
		MonthSummary(ctx context.Context, userID int64, yearMonth string) (core.MonthSummary, error)
		BudgetUsage(ctx context.Context, userID int64, yearMonth string) ([]core.BudgetUsage, error)
	}

	Store interface {
		UserStore
		CategoryStore
		BudgetStore
		ExpenseStore
		IncomeStore
		DebtStore
		SavingsStore
		ReportStore

		Ping(ctx context.Context) error
		Close() error
	}
)
