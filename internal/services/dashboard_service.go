package services

import (
	"context"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// Window is the number of months shown in the dashboard series, the current
// month included.
const Window = 6

// DashboardService assembles the overview page: six-month expense and income
// series, current-month totals with month-over-month change, and per-budget
// usage.
type DashboardService struct {
	store  storage.Store
	logger *log.Logger
}

type Dashboard struct {
	ExpenseSeries []core.MonthBucket
	IncomeSeries  []core.MonthBucket
	Current       core.MonthSummary
	ExpenseChange float64
	IncomeChange  float64
	Usage         []core.BudgetUsage
}

func (s *DashboardService) Summary(ctx context.Context, now time.Time) (Dashboard, error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return Dashboard{}, forbiddenErr()
	}

	keys := core.LastMonths(now, Window)
	from, to := keys[0], keys[len(keys)-1]

	expenseTotals, err := s.store.MonthlyExpenseTotals(ctx, userID, from, to)
	if err != nil {
		return Dashboard{}, err
	}
	incomeTotals, err := s.store.MonthlyIncomeTotals(ctx, userID, from, to)
	if err != nil {
		return Dashboard{}, err
	}

	current, err := s.store.MonthSummary(ctx, userID, to)
	if err != nil {
		return Dashboard{}, err
	}
	usage, err := s.store.BudgetUsage(ctx, userID, to)
	if err != nil {
		return Dashboard{}, err
	}

	previous := core.PreviousMonth(now)
	return Dashboard{
		ExpenseSeries: core.FillMonthBuckets(now, Window, expenseTotals),
		IncomeSeries:  core.FillMonthBuckets(now, Window, incomeTotals),
		Current:       current,
		ExpenseChange: core.PercentChange(expenseTotals[to], expenseTotals[previous]),
		IncomeChange:  core.PercentChange(incomeTotals[to], incomeTotals[previous]),
		Usage:         usage,
	}, nil
}
