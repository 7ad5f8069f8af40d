package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

func seedUser(t *testing.T, s *Store, email string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), core.User{Email: email, Name: "Test", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func seedCategory(t *testing.T, s *Store, userID int64, name string) int64 {
	t.Helper()
	id, err := s.CreateCategory(context.Background(), core.Category{UserID: userID, Name: name})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return id
}

func seedExpense(t *testing.T, s *Store, userID, categoryID int64, name string, cents int64, date time.Time) int64 {
	t.Helper()
	id, err := s.CreateExpense(context.Background(), core.Expense{
		UserID:     userID,
		CategoryID: categoryID,
		Name:       name,
		Amount:     core.Money{Cents: cents},
		Date:       date,
		YearMonth:  core.YearMonthOf(date),
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	return id
}

func TestDuplicateEmailConflicts(t *testing.T) {
	s := New()
	seedUser(t, s, "ada@example.com")
	_, err := s.CreateUser(context.Background(), core.User{Email: "ADA@example.com", Name: "Dup", PasswordHash: "x"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDuplicateCategoryNamePerUser(t *testing.T) {
	s := New()
	ctx := context.Background()
	u1 := seedUser(t, s, "a@example.com")
	u2 := seedUser(t, s, "b@example.com")
	seedCategory(t, s, u1, "Food")

	if _, err := s.CreateCategory(ctx, core.Category{UserID: u1, Name: "food"}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict for same user, got %v", err)
	}
	if _, err := s.CreateCategory(ctx, core.Category{UserID: u2, Name: "Food"}); err != nil {
		t.Fatalf("other user may reuse the name: %v", err)
	}
}

func TestDeleteCategoryWhileReferenced(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")
	c := seedCategory(t, s, u, "Food")
	expenseID := seedExpense(t, s, u, c, "Lunch", 1200, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	if err := s.DeleteCategory(ctx, c); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict while referenced, got %v", err)
	}
	if err := s.DeleteExpense(ctx, expenseID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	if err := s.DeleteCategory(ctx, c); err != nil {
		t.Fatalf("unreferenced category should delete: %v", err)
	}
}

func TestBudgetUniquePerCategory(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")
	c := seedCategory(t, s, u, "Food")

	if _, err := s.CreateBudget(ctx, core.Budget{UserID: u, CategoryID: c, Amount: core.Money{Cents: 100}, YearMonth: "2024-03"}); err != nil {
		t.Fatalf("first budget: %v", err)
	}
	_, err := s.CreateBudget(ctx, core.Budget{UserID: u, CategoryID: c, Amount: core.Money{Cents: 200}, YearMonth: "2024-04"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestExpensePagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")
	c := seedCategory(t, s, u, "Food")
	for i := 0; i < 23; i++ {
		seedExpense(t, s, u, c, fmt.Sprintf("expense-%02d", i), 100, time.Date(2024, 3, 1+i%27, 0, 0, 0, 0, time.UTC))
	}

	total, err := s.CountExpenses(ctx, storage.Filter{UserID: u})
	if err != nil || total != 23 {
		t.Fatalf("expected 23 total, got %d (err=%v)", total, err)
	}
	if pages := storage.PageCount(total); pages != 3 {
		t.Fatalf("expected 3 pages, got %d", pages)
	}

	page1, err := s.Expenses(ctx, storage.Filter{UserID: u, Page: 1})
	if err != nil || len(page1) != storage.PageSize {
		t.Fatalf("page 1 expected %d rows, got %d (err=%v)", storage.PageSize, len(page1), err)
	}
	page3, err := s.Expenses(ctx, storage.Filter{UserID: u, Page: 3})
	if err != nil || len(page3) != 3 {
		t.Fatalf("page 3 expected 3 rows, got %d (err=%v)", len(page3), err)
	}
	page4, err := s.Expenses(ctx, storage.Filter{UserID: u, Page: 4})
	if err != nil || len(page4) != 0 {
		t.Fatalf("page beyond the end should be empty, got %d (err=%v)", len(page4), err)
	}
}

func TestExpenseFilterMatchesNameAndCategory(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")
	food := seedCategory(t, s, u, "Food")
	travel := seedCategory(t, s, u, "Travel")
	seedExpense(t, s, u, food, "Lunch", 1000, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	seedExpense(t, s, u, travel, "Train ticket", 2000, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))

	byName, _ := s.Expenses(ctx, storage.Filter{UserID: u, Query: "lunch", Page: 1})
	if len(byName) != 1 || byName[0].Name != "Lunch" {
		t.Fatalf("case-insensitive name filter failed: %+v", byName)
	}
	byCategory, _ := s.Expenses(ctx, storage.Filter{UserID: u, Query: "trav", Page: 1})
	if len(byCategory) != 1 || byCategory[0].Name != "Train ticket" {
		t.Fatalf("category name filter failed: %+v", byCategory)
	}
}

func TestExpensesScopedByUser(t *testing.T) {
	s := New()
	ctx := context.Background()
	u1 := seedUser(t, s, "a@example.com")
	u2 := seedUser(t, s, "b@example.com")
	c1 := seedCategory(t, s, u1, "Food")
	c2 := seedCategory(t, s, u2, "Food")
	seedExpense(t, s, u1, c1, "Mine", 100, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	seedExpense(t, s, u2, c2, "Theirs", 100, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	rows, _ := s.Expenses(ctx, storage.Filter{UserID: u1, Page: 1})
	if len(rows) != 1 || rows[0].Name != "Mine" {
		t.Fatalf("expected only the owner's rows, got %+v", rows)
	}
}

func TestDebtCascadesPayments(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")
	c := seedCategory(t, s, u, "Loans")
	debtID, err := s.CreateDebt(ctx, core.Debt{UserID: u, CategoryID: c, Name: "Car", Amount: core.Money{Cents: 100000}})
	if err != nil {
		t.Fatalf("create debt: %v", err)
	}
	payID, err := s.CreateDebtPayment(ctx, core.DebtPayment{DebtID: debtID, Amount: core.Money{Cents: 5000}, Date: time.Now()})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	d, err := s.DebtByID(ctx, debtID)
	if err != nil {
		t.Fatalf("load debt: %v", err)
	}
	if d.TotalPaid.Cents != 5000 || len(d.Payments) != 1 {
		t.Fatalf("expected one payment summing 5000, got %+v", d)
	}

	if err := s.DeleteDebt(ctx, debtID); err != nil {
		t.Fatalf("delete debt: %v", err)
	}
	if _, err := s.DebtPaymentByID(ctx, payID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("payments should cascade, got %v", err)
	}
}

func TestMonthlyTotalsAndSummary(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")
	c := seedCategory(t, s, u, "Food")

	seedExpense(t, s, u, c, "Feb", 1000, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	seedExpense(t, s, u, c, "Mar one", 2000, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	seedExpense(t, s, u, c, "Mar two", 3000, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	if _, err := s.CreateIncome(ctx, core.Income{
		UserID: u, CategoryID: c, Name: "Salary",
		Amount: core.Money{Cents: 250000}, Type: core.Regular, Frequency: core.Monthly,
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), YearMonth: "2024-03",
	}); err != nil {
		t.Fatalf("create income: %v", err)
	}
	if _, err := s.CreateBudget(ctx, core.Budget{UserID: u, CategoryID: c, Amount: core.Money{Cents: 40000}, YearMonth: "2024-03"}); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	totals, err := s.MonthlyExpenseTotals(ctx, u, "2024-01", "2024-03")
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals["2024-02"] != 1000 || totals["2024-03"] != 5000 {
		t.Fatalf("unexpected totals: %v", totals)
	}
	if _, ok := totals["2024-01"]; ok {
		t.Fatal("empty months must stay absent, callers zero-fill")
	}

	sum, err := s.MonthSummary(ctx, u, "2024-03")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.ExpenseTotal.Cents != 5000 || sum.IncomeTotal.Cents != 250000 || sum.BudgetTotal.Cents != 40000 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	usage, err := s.BudgetUsage(ctx, u, "2024-03")
	if err != nil || len(usage) != 1 {
		t.Fatalf("usage: %v %+v", err, usage)
	}
	if usage[0].Allocated.Cents != 40000 || usage[0].Spent.Cents != 5000 {
		t.Fatalf("unexpected usage row: %+v", usage[0])
	}
}

func TestSavingsGoalContributions(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")
	c := seedCategory(t, s, u, "Savings")
	goalID, err := s.CreateSavingsGoal(ctx, core.SavingsGoal{UserID: u, CategoryID: c, Name: "Vacation", Target: core.Money{Cents: 100000}})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if _, err := s.CreateContribution(ctx, core.Contribution{GoalID: goalID, Amount: core.Money{Cents: 25000}, Date: time.Now()}); err != nil {
		t.Fatalf("create contribution: %v", err)
	}

	g, err := s.SavingsGoalByID(ctx, goalID)
	if err != nil {
		t.Fatalf("load goal: %v", err)
	}
	if g.TotalSaved.Cents != 25000 {
		t.Fatalf("expected 25000 saved, got %d", g.TotalSaved.Cents)
	}
}

func TestUserIDs(t *testing.T) {
	s := New()
	u1 := seedUser(t, s, "a@example.com")
	u2 := seedUser(t, s, "b@example.com")
	ids, err := s.UserIDs(context.Background())
	if err != nil {
		t.Fatalf("user ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[u1] || !seen[u2] {
		t.Fatalf("missing ids: %v", ids)
	}
}
