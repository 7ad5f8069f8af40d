package services

import (
	"context"
	"net/url"

	"bilancio/internal/core"
	"bilancio/internal/forms"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// IncomeService manages income records. The month bucket comes from the
// start date.
type IncomeService struct {
	store     storage.Store
	publisher Publisher
	logger    *log.Logger
}

func (s *IncomeService) Create(ctx context.Context, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParseIncome(values)
	if errs.Any() {
		return fieldFailure(errs)
	}
	if errs := ownedCategory(ctx, s.store, userID, in.CategoryID); errs != nil {
		return fieldFailure(errs)
	}

	yearMonth := core.YearMonthOf(in.StartDate)
	id, err := s.store.CreateIncome(ctx, core.Income{
		UserID:     userID,
		CategoryID: in.CategoryID,
		Name:       in.Name,
		Amount:     in.Amount,
		Type:       in.Type,
		Frequency:  in.Frequency,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		YearMonth:  yearMonth,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "create income failed", log.FieldError, err, log.FieldUserID, userID)
		return databaseFailure()
	}

	publish(ctx, s.publisher, s.logger, userID, yearMonth)
	return Result{ID: id, YearMonth: yearMonth}
}

func (s *IncomeService) Update(ctx context.Context, id int64, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParseIncome(values)
	if errs.Any() {
		return fieldFailure(errs)
	}

	existing, err := s.store.IncomeByID(ctx, id)
	if err != nil || existing.UserID != userID {
		return forbidden()
	}
	if errs := ownedCategory(ctx, s.store, userID, in.CategoryID); errs != nil {
		return fieldFailure(errs)
	}

	yearMonth := core.YearMonthOf(in.StartDate)
	existing.Name = in.Name
	existing.Amount = in.Amount
	existing.CategoryID = in.CategoryID
	existing.Type = in.Type
	existing.Frequency = in.Frequency
	existing.StartDate = in.StartDate
	existing.EndDate = in.EndDate
	existing.YearMonth = yearMonth
	if err := s.store.UpdateIncome(ctx, existing); err != nil {
		s.logger.ErrorContext(ctx, "update income failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}

	publish(ctx, s.publisher, s.logger, userID, yearMonth)
	return Result{ID: id, YearMonth: yearMonth}
}

func (s *IncomeService) Delete(ctx context.Context, id int64) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	existing, err := s.store.IncomeByID(ctx, id)
	if err != nil || existing.UserID != userID {
		return forbidden()
	}
	if err := s.store.DeleteIncome(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "delete income failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}

	publish(ctx, s.publisher, s.logger, userID, existing.YearMonth)
	return Result{ID: id, YearMonth: existing.YearMonth}
}

func (s *IncomeService) Page(ctx context.Context, query string, page int) (Page[core.Income], error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return Page[core.Income]{}, forbiddenErr()
	}
	f := storage.Filter{UserID: userID, Query: query, Page: page}
	items, err := s.store.Incomes(ctx, f)
	if err != nil {
		return Page[core.Income]{}, err
	}
	total, err := s.store.CountIncomes(ctx, f)
	if err != nil {
		return Page[core.Income]{}, err
	}
	return Page[core.Income]{Items: items, Page: page, TotalPages: storage.PageCount(total), Query: query}, nil
}

func (s *IncomeService) Get(ctx context.Context, id int64) (core.Income, error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return core.Income{}, forbiddenErr()
	}
	in, err := s.store.IncomeByID(ctx, id)
	if err != nil {
		return core.Income{}, err
	}
	if in.UserID != userID {
		return core.Income{}, storage.ErrNotFound
	}
	return in, nil
}
