package services

import (
	"context"
	"net/url"

	"bilancio/internal/core"
	"bilancio/internal/forms"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// ExpenseService manages expense records. The stored year_month column is
// always recomputed from the submitted date, never taken from the form.
type ExpenseService struct {
	store     storage.Store
	publisher Publisher
	logger    *log.Logger
}

func (s *ExpenseService) Create(ctx context.Context, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParseExpense(values)
	if errs.Any() {
		return fieldFailure(errs)
	}
	if errs := ownedCategory(ctx, s.store, userID, in.CategoryID); errs != nil {
		return fieldFailure(errs)
	}

	yearMonth := core.YearMonthOf(in.Date)
	id, err := s.store.CreateExpense(ctx, core.Expense{
		UserID:     userID,
		CategoryID: in.CategoryID,
		Name:       in.Name,
		Amount:     in.Amount,
		Date:       in.Date,
		YearMonth:  yearMonth,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "create expense failed", log.FieldError, err, log.FieldUserID, userID)
		return databaseFailure()
	}

	publish(ctx, s.publisher, s.logger, userID, yearMonth)
	return Result{ID: id, YearMonth: yearMonth}
}

func (s *ExpenseService) Update(ctx context.Context, id int64, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParseExpense(values)
	if errs.Any() {
		return fieldFailure(errs)
	}

	existing, err := s.store.ExpenseByID(ctx, id)
	if err != nil || existing.UserID != userID {
		return forbidden()
	}
	if errs := ownedCategory(ctx, s.store, userID, in.CategoryID); errs != nil {
		return fieldFailure(errs)
	}

	yearMonth := core.YearMonthOf(in.Date)
	existing.Name = in.Name
	existing.Amount = in.Amount
	existing.CategoryID = in.CategoryID
	existing.Date = in.Date
	existing.YearMonth = yearMonth
	if err := s.store.UpdateExpense(ctx, existing); err != nil {
		s.logger.ErrorContext(ctx, "update expense failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}

	publish(ctx, s.publisher, s.logger, userID, yearMonth)
	return Result{ID: id, YearMonth: yearMonth}
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	existing, err := s.store.ExpenseByID(ctx, id)
	if err != nil || existing.UserID != userID {
		return forbidden()
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "delete expense failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}

	publish(ctx, s.publisher, s.logger, userID, existing.YearMonth)
	return Result{ID: id, YearMonth: existing.YearMonth}
}

func (s *ExpenseService) Page(ctx context.Context, query string, page int) (Page[core.Expense], error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return Page[core.Expense]{}, forbiddenErr()
	}
	f := storage.Filter{UserID: userID, Query: query, Page: page}
	items, err := s.store.Expenses(ctx, f)
	if err != nil {
		return Page[core.Expense]{}, err
	}
	total, err := s.store.CountExpenses(ctx, f)
	if err != nil {
		return Page[core.Expense]{}, err
	}
	return Page[core.Expense]{Items: items, Page: page, TotalPages: storage.PageCount(total), Query: query}, nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return core.Expense{}, forbiddenErr()
	}
	e, err := s.store.ExpenseByID(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if e.UserID != userID {
		return core.Expense{}, storage.ErrNotFound
	}
	return e, nil
}
