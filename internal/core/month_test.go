package core

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearMonthOf(t *testing.T) {
	if got := YearMonthOf(date(2024, time.March, 31)); got != "2024-03" {
		t.Fatalf("expected 2024-03, got %s", got)
	}
}

func TestValidYearMonth(t *testing.T) {
	for _, ok := range []string{"2024-01", "1999-12"} {
		if !ValidYearMonth(ok) {
			t.Fatalf("%q should be valid", ok)
		}
	}
	for _, bad := range []string{"2024-13", "2024-1", "2024", "march", ""} {
		if ValidYearMonth(bad) {
			t.Fatalf("%q should be invalid", bad)
		}
	}
}

func TestMonthLabel(t *testing.T) {
	if got := MonthLabel("2024-03"); got != "March" {
		t.Fatalf("expected March, got %s", got)
	}
	if got := MonthLabel("garbage"); got != "garbage" {
		t.Fatalf("malformed key should label as itself, got %s", got)
	}
}

func TestLastMonths(t *testing.T) {
	got := LastMonths(date(2024, time.March, 15), 3)
	want := []string{"2024-01", "2024-02", "2024-03"}
	if len(got) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLastMonthsCrossesYear(t *testing.T) {
	got := LastMonths(date(2024, time.February, 1), 4)
	want := []string{"2023-11", "2023-12", "2024-01", "2024-02"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestPreviousMonth(t *testing.T) {
	if got := PreviousMonth(date(2024, time.January, 31)); got != "2023-12" {
		t.Fatalf("expected 2023-12, got %s", got)
	}
}

func TestFillMonthBuckets(t *testing.T) {
	totals := map[string]int64{"2024-02": 500, "2024-03": 1200}
	buckets := FillMonthBuckets(date(2024, time.March, 10), 3, totals)
	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(buckets))
	}
	if buckets[0].YearMonth != "2024-01" || buckets[0].Total.Cents != 0 {
		t.Fatalf("empty month should zero-fill, got %+v", buckets[0])
	}
	if buckets[2].Total.Cents != 1200 || buckets[2].Label != "March" {
		t.Fatalf("expected March at 1200, got %+v", buckets[2])
	}
}

func TestPercentChange(t *testing.T) {
	cases := []struct {
		current, previous int64
		want              float64
	}{
		{0, 0, 0},
		{500, 0, 100},
		{150, 100, 50},
		{50, 100, -50},
		{100, 100, 0},
	}
	for _, tc := range cases {
		if got := PercentChange(tc.current, tc.previous); got != tc.want {
			t.Fatalf("(%d, %d) expected %v, got %v", tc.current, tc.previous, tc.want, got)
		}
	}
}

func TestBudgetUsageRemaining(t *testing.T) {
	u := BudgetUsage{Allocated: Money{Cents: 1000}, Spent: Money{Cents: 400}}
	if got := u.Remaining().Cents; got != 600 {
		t.Fatalf("expected 600, got %d", got)
	}
	over := BudgetUsage{Allocated: Money{Cents: 1000}, Spent: Money{Cents: 1400}}
	if got := over.Remaining().Cents; got != 0 {
		t.Fatalf("overspent budget should floor at zero, got %d", got)
	}
}

func TestDebtOutstanding(t *testing.T) {
	d := Debt{Amount: Money{Cents: 10000}, TotalPaid: Money{Cents: 2500}}
	if got := d.Outstanding().Cents; got != 7500 {
		t.Fatalf("expected 7500, got %d", got)
	}
	over := Debt{Amount: Money{Cents: 1000}, TotalPaid: Money{Cents: 1500}}
	if got := over.Outstanding().Cents; got != 0 {
		t.Fatalf("overpaid debt should floor at zero, got %d", got)
	}
}

func TestSavingsGoalProgress(t *testing.T) {
	g := SavingsGoal{Target: Money{Cents: 1000}, TotalSaved: Money{Cents: 250}}
	if got := g.Progress(); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
	capped := SavingsGoal{Target: Money{Cents: 1000}, TotalSaved: Money{Cents: 2000}}
	if got := capped.Progress(); got != 100 {
		t.Fatalf("progress should cap at 100, got %d", got)
	}
	empty := SavingsGoal{}
	if got := empty.Progress(); got != 0 {
		t.Fatalf("zero target should report 0, got %d", got)
	}
}
