package services

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"bilancio/internal/auth"
	"bilancio/internal/log"
	"bilancio/internal/storage/memory"
)

// publishRecorder captures report sync messages for assertions.
type publishRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *publishRecorder) PublishReportSync(ctx context.Context, userID int64, yearMonth string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, yearMonth)
	return nil
}

func (r *publishRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *publishRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1]
}

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

// fixture builds a registry over the memory store with one registered user
// and one category, returning the authenticated context.
func fixture(t *testing.T) (*Registry, *publishRecorder, context.Context, int64) {
	t.Helper()
	store := memory.New()
	rec := &publishRecorder{}
	reg := NewRegistry(store, rec, testLogger())

	res := reg.Users.Register(context.Background(), url.Values{
		"email":    {"ada@example.com"},
		"name":     {"Ada"},
		"password": {"supersecret"},
	})
	if !res.OK() {
		t.Fatalf("register failed: %+v", res)
	}
	ctx := auth.WithUser(context.Background(), res.ID)

	catRes := reg.Categories.Create(ctx, url.Values{"name": {"Food"}})
	if !catRes.OK() {
		t.Fatalf("create category failed: %+v", catRes)
	}
	return reg, rec, ctx, catRes.ID
}

func TestRegisterDuplicateEmail(t *testing.T) {
	reg, _, _, _ := fixture(t)
	res := reg.Users.Register(context.Background(), url.Values{
		"email":    {"ada@example.com"},
		"name":     {"Other"},
		"password": {"supersecret"},
	})
	if res.OK() {
		t.Fatal("duplicate email should fail")
	}
	if len(res.Errors["email"]) == 0 {
		t.Fatalf("expected field error on email, got %+v", res)
	}
}

func TestLogin(t *testing.T) {
	reg, _, _, _ := fixture(t)

	t.Run("valid credentials", func(t *testing.T) {
		id, res := reg.Users.Login(context.Background(), url.Values{
			"email":    {"ada@example.com"},
			"password": {"supersecret"},
		})
		if !res.OK() || id == 0 {
			t.Fatalf("login should succeed: %+v", res)
		}
	})

	t.Run("wrong password and unknown email read the same", func(t *testing.T) {
		_, wrongPass := reg.Users.Login(context.Background(), url.Values{
			"email":    {"ada@example.com"},
			"password": {"not-the-password"},
		})
		_, unknown := reg.Users.Login(context.Background(), url.Values{
			"email":    {"nobody@example.com"},
			"password": {"supersecret"},
		})
		if wrongPass.OK() || unknown.OK() {
			t.Fatal("both attempts should fail")
		}
		if wrongPass.Errors["email"][0] != unknown.Errors["email"][0] {
			t.Fatal("failure messages must not distinguish the cases")
		}
	})
}

func TestExpenseCreatePublishesYearMonth(t *testing.T) {
	reg, rec, ctx, catID := fixture(t)

	res := reg.Expenses.Create(ctx, url.Values{
		"name":       {"Lunch"},
		"amount":     {"12.50"},
		"categoryId": {itoa(catID)},
		"date":       {"2024-03-15"},
	})
	if !res.OK() {
		t.Fatalf("create failed: %+v", res)
	}
	if res.YearMonth != "2024-03" {
		t.Fatalf("expected 2024-03, got %s", res.YearMonth)
	}
	if rec.count() != 1 || rec.last() != "2024-03" {
		t.Fatalf("expected one publish for 2024-03, got %d (%s)", rec.count(), rec.last())
	}
}

func TestExpenseValidationFailureWritesNothing(t *testing.T) {
	reg, rec, ctx, _ := fixture(t)

	res := reg.Expenses.Create(ctx, url.Values{"name": {"Lunch"}})
	if res.OK() {
		t.Fatal("incomplete form should fail")
	}
	if rec.count() != 0 {
		t.Fatal("no write, no publish")
	}
	p, err := reg.Expenses.Page(ctx, "", 1)
	if err != nil || len(p.Items) != 0 {
		t.Fatalf("nothing should be stored, got %d items (err=%v)", len(p.Items), err)
	}
}

func TestExpenseUnknownCategoryReadsAsFieldError(t *testing.T) {
	reg, _, ctx, _ := fixture(t)

	res := reg.Expenses.Create(ctx, url.Values{
		"name":       {"Lunch"},
		"amount":     {"10"},
		"categoryId": {"999"},
		"date":       {"2024-03-15"},
	})
	if res.OK() {
		t.Fatal("unknown category should fail")
	}
	if len(res.Errors["categoryId"]) == 0 {
		t.Fatalf("expected field error on categoryId, got %+v", res)
	}
}

func TestCrossUserEditIsForbidden(t *testing.T) {
	reg, _, ctx, catID := fixture(t)

	created := reg.Expenses.Create(ctx, url.Values{
		"name":       {"Lunch"},
		"amount":     {"10"},
		"categoryId": {itoa(catID)},
		"date":       {"2024-03-15"},
	})
	if !created.OK() {
		t.Fatalf("create failed: %+v", created)
	}

	other := reg.Users.Register(context.Background(), url.Values{
		"email":    {"eve@example.com"},
		"name":     {"Eve"},
		"password": {"supersecret"},
	})
	otherCtx := auth.WithUser(context.Background(), other.ID)
	otherCat := reg.Categories.Create(otherCtx, url.Values{"name": {"Own"}})

	res := reg.Expenses.Update(otherCtx, created.ID, url.Values{
		"name":       {"Hijacked"},
		"amount":     {"1"},
		"categoryId": {itoa(otherCat.ID)},
		"date":       {"2024-03-15"},
	})
	if res.Failure != FailureForbidden {
		t.Fatalf("expected generic forbidden failure, got %+v", res)
	}

	e, err := reg.Expenses.Get(ctx, created.ID)
	if err != nil || e.Name != "Lunch" {
		t.Fatalf("record must stay untouched: %+v (err=%v)", e, err)
	}
}

func TestBudgetDuplicateCategory(t *testing.T) {
	reg, _, ctx, catID := fixture(t)

	first := reg.Budgets.Create(ctx, url.Values{
		"categoryId": {itoa(catID)},
		"amount":     {"400"},
		"yearMonth":  {"2024-03"},
	})
	if !first.OK() {
		t.Fatalf("first budget failed: %+v", first)
	}

	second := reg.Budgets.Create(ctx, url.Values{
		"categoryId": {itoa(catID)},
		"amount":     {"500"},
		"yearMonth":  {"2024-04"},
	})
	if second.OK() {
		t.Fatal("second budget for the category should fail")
	}
	if len(second.Errors["categoryId"]) == 0 {
		t.Fatalf("expected field error on categoryId, got %+v", second)
	}
}

func TestBudgetCategoryCannotChange(t *testing.T) {
	reg, _, ctx, catID := fixture(t)

	otherCat := reg.Categories.Create(ctx, url.Values{"name": {"Travel"}})
	created := reg.Budgets.Create(ctx, url.Values{
		"categoryId": {itoa(catID)},
		"amount":     {"400"},
		"yearMonth":  {"2024-03"},
	})

	res := reg.Budgets.Update(ctx, created.ID, url.Values{
		"categoryId": {itoa(otherCat.ID)},
		"amount":     {"400"},
		"yearMonth":  {"2024-03"},
	})
	if res.OK() {
		t.Fatal("category change should be rejected")
	}
	if len(res.Errors["categoryId"]) == 0 {
		t.Fatalf("expected field error on categoryId, got %+v", res)
	}
}

func TestBudgetUnknownIDReadsAsNotFound(t *testing.T) {
	reg, _, ctx, catID := fixture(t)

	res := reg.Budgets.Update(ctx, 999, url.Values{
		"categoryId": {itoa(catID)},
		"amount":     {"400"},
		"yearMonth":  {"2024-03"},
	})
	if res.Failure != FailureNotFound {
		t.Fatalf("expected not found, got %+v", res)
	}

	if del := reg.Budgets.Delete(ctx, 999); del.Failure != FailureNotFound {
		t.Fatalf("expected not found, got %+v", del)
	}
}

func TestBudgetDeletePublishesItsMonth(t *testing.T) {
	reg, rec, ctx, catID := fixture(t)

	created := reg.Budgets.Create(ctx, url.Values{
		"categoryId": {itoa(catID)},
		"amount":     {"400"},
		"yearMonth":  {"2024-03"},
	})
	res := reg.Budgets.Delete(ctx, created.ID)
	if !res.OK() {
		t.Fatalf("delete failed: %+v", res)
	}
	if rec.last() != "2024-03" {
		t.Fatalf("delete should publish the budget's month, got %s", rec.last())
	}
}

func TestCategoryDeleteWhileReferenced(t *testing.T) {
	reg, _, ctx, catID := fixture(t)

	reg.Expenses.Create(ctx, url.Values{
		"name":       {"Lunch"},
		"amount":     {"10"},
		"categoryId": {itoa(catID)},
		"date":       {"2024-03-15"},
	})

	res := reg.Categories.Delete(ctx, catID)
	if res.OK() {
		t.Fatal("referenced category should not delete")
	}
	if res.Failure == "" || res.Failure == FailureDatabase {
		t.Fatalf("expected a readable in-use message, got %+v", res)
	}
}

func TestDebtPaymentOwnership(t *testing.T) {
	reg, _, ctx, catID := fixture(t)

	debt := reg.Debts.Create(ctx, url.Values{
		"name":         {"Car loan"},
		"amount":       {"10000"},
		"categoryId":   {itoa(catID)},
		"interestRate": {"3"},
	})
	if !debt.OK() {
		t.Fatalf("create debt failed: %+v", debt)
	}

	other := reg.Users.Register(context.Background(), url.Values{
		"email":    {"eve@example.com"},
		"name":     {"Eve"},
		"password": {"supersecret"},
	})
	otherCtx := auth.WithUser(context.Background(), other.ID)

	res := reg.Debts.AddPayment(otherCtx, debt.ID, url.Values{
		"amount": {"100"},
		"date":   {"2024-03-15"},
	})
	if res.Failure != FailureForbidden {
		t.Fatalf("foreign payment should be forbidden, got %+v", res)
	}

	mine := reg.Debts.AddPayment(ctx, debt.ID, url.Values{
		"amount": {"100"},
		"date":   {"2024-03-15"},
	})
	if !mine.OK() {
		t.Fatalf("own payment failed: %+v", mine)
	}

	deleted := reg.Debts.DeletePayment(ctx, mine.ID)
	if !deleted.OK() || deleted.ID != debt.ID {
		t.Fatalf("delete should report the parent debt id, got %+v", deleted)
	}
}

func TestSavingsContributionFlow(t *testing.T) {
	reg, _, ctx, catID := fixture(t)

	goal := reg.Savings.Create(ctx, url.Values{
		"name":         {"Vacation"},
		"targetAmount": {"2000"},
		"categoryId":   {itoa(catID)},
	})
	if !goal.OK() {
		t.Fatalf("create goal failed: %+v", goal)
	}

	contrib := reg.Savings.AddContribution(ctx, goal.ID, url.Values{
		"amount": {"250"},
		"date":   {"2024-03-15"},
	})
	if !contrib.OK() {
		t.Fatalf("add contribution failed: %+v", contrib)
	}

	g, err := reg.Savings.Get(ctx, goal.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if g.TotalSaved.Cents != 25000 {
		t.Fatalf("expected 25000 cents saved, got %d", g.TotalSaved.Cents)
	}
}

func TestUnauthenticatedContextIsForbidden(t *testing.T) {
	reg, _, _, _ := fixture(t)

	res := reg.Expenses.Create(context.Background(), url.Values{
		"name":       {"Lunch"},
		"amount":     {"10"},
		"categoryId": {"1"},
		"date":       {"2024-03-15"},
	})
	if res.Failure != FailureForbidden {
		t.Fatalf("expected forbidden, got %+v", res)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
