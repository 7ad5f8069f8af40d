package services

import (
	"net/url"
	"testing"
	"time"
)

func TestDashboardSummary(t *testing.T) {
	reg, _, ctx, catID := fixture(t)
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

	for _, e := range []struct {
		name, amount, date string
	}{
		{"February groceries", "100.00", "2024-02-10"},
		{"March groceries", "150.00", "2024-03-05"},
		{"Old expense", "999.00", "2023-01-01"}, // outside the window
	} {
		res := reg.Expenses.Create(ctx, url.Values{
			"name":       {e.name},
			"amount":     {e.amount},
			"categoryId": {itoa(catID)},
			"date":       {e.date},
		})
		if !res.OK() {
			t.Fatalf("create %s failed: %+v", e.name, res)
		}
	}
	if res := reg.Incomes.Create(ctx, url.Values{
		"name":       {"Salary"},
		"amount":     {"2500"},
		"categoryId": {itoa(catID)},
		"type":       {"IRREGULAR"},
		"startDate":  {"2024-03-01"},
	}); !res.OK() {
		t.Fatalf("create income failed: %+v", res)
	}
	if res := reg.Budgets.Create(ctx, url.Values{
		"categoryId": {itoa(catID)},
		"amount":     {"400"},
		"yearMonth":  {"2024-03"},
	}); !res.OK() {
		t.Fatalf("create budget failed: %+v", res)
	}

	d, err := reg.Dashboard.Summary(ctx, now)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if len(d.ExpenseSeries) != Window {
		t.Fatalf("expected %d buckets, got %d", Window, len(d.ExpenseSeries))
	}
	last := d.ExpenseSeries[Window-1]
	if last.YearMonth != "2024-03" || last.Total.Cents != 15000 {
		t.Fatalf("unexpected current bucket: %+v", last)
	}
	if d.ExpenseSeries[0].Total.Cents != 0 {
		t.Fatalf("months without data should zero-fill, got %+v", d.ExpenseSeries[0])
	}

	if d.Current.ExpenseTotal.Cents != 15000 || d.Current.IncomeTotal.Cents != 250000 || d.Current.BudgetTotal.Cents != 40000 {
		t.Fatalf("unexpected current summary: %+v", d.Current)
	}

	// 10000 -> 15000 month over month
	if d.ExpenseChange != 50 {
		t.Fatalf("expected +50%% expense change, got %v", d.ExpenseChange)
	}

	if len(d.Usage) != 1 || d.Usage[0].Spent.Cents != 15000 || d.Usage[0].Allocated.Cents != 40000 {
		t.Fatalf("unexpected usage: %+v", d.Usage)
	}
}
