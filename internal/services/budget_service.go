package services

import (
	"context"
	"net/url"

	"bilancio/internal/core"
	"bilancio/internal/forms"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// BudgetService manages per-category monthly allocations. The *For variants
// take an explicit user id so the JSON API, which authenticates by query
// parameter instead of session, can share the same paths.
type BudgetService struct {
	store     storage.Store
	publisher Publisher
	logger    *log.Logger
}

func (s *BudgetService) Create(ctx context.Context, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	return s.CreateFor(ctx, userID, values)
}

func (s *BudgetService) CreateFor(ctx context.Context, userID int64, values url.Values) Result {
	in, errs := forms.ParseBudget(values)
	if errs.Any() {
		return fieldFailure(errs)
	}
	if errs := ownedCategory(ctx, s.store, userID, in.CategoryID); errs != nil {
		return fieldFailure(errs)
	}

	id, err := s.store.CreateBudget(ctx, core.Budget{
		UserID:     userID,
		CategoryID: in.CategoryID,
		Amount:     in.Amount,
		YearMonth:  in.YearMonth,
	})
	if err != nil {
		if isConflict(err) {
			fe := make(forms.FieldErrors)
			fe.Add("categoryId", "This category already has a budget.")
			return fieldFailure(fe)
		}
		s.logger.ErrorContext(ctx, "create budget failed", log.FieldError, err, log.FieldUserID, userID)
		return databaseFailure()
	}

	publish(ctx, s.publisher, s.logger, userID, in.YearMonth)
	return Result{ID: id, YearMonth: in.YearMonth}
}

func (s *BudgetService) Update(ctx context.Context, id int64, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	return s.UpdateFor(ctx, userID, id, values)
}

func (s *BudgetService) UpdateFor(ctx context.Context, userID, id int64, values url.Values) Result {
	in, errs := forms.ParseBudget(values)
	if errs.Any() {
		return fieldFailure(errs)
	}

	existing, err := s.store.BudgetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return notFound()
		}
		s.logger.ErrorContext(ctx, "load budget failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}
	if existing.UserID != userID {
		return forbidden()
	}
	if in.CategoryID != existing.CategoryID {
		// The category of a budget is fixed; changing it would bypass the
		// one-budget-per-category constraint.
		fe := make(forms.FieldErrors)
		fe.Add("categoryId", "The category of a budget cannot be changed.")
		return fieldFailure(fe)
	}

	existing.Amount = in.Amount
	existing.YearMonth = in.YearMonth
	if err := s.store.UpdateBudget(ctx, existing); err != nil {
		s.logger.ErrorContext(ctx, "update budget failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}

	publish(ctx, s.publisher, s.logger, userID, in.YearMonth)
	return Result{ID: id, YearMonth: in.YearMonth}
}

func (s *BudgetService) Delete(ctx context.Context, id int64) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	return s.DeleteFor(ctx, userID, id)
}

func (s *BudgetService) DeleteFor(ctx context.Context, userID, id int64) Result {
	existing, err := s.store.BudgetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return notFound()
		}
		s.logger.ErrorContext(ctx, "load budget failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}
	if existing.UserID != userID {
		return forbidden()
	}
	if err := s.store.DeleteBudget(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "delete budget failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}

	publish(ctx, s.publisher, s.logger, userID, existing.YearMonth)
	return Result{ID: id, YearMonth: existing.YearMonth}
}

func (s *BudgetService) Page(ctx context.Context, query string, page int) (Page[core.Budget], error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return Page[core.Budget]{}, forbiddenErr()
	}
	f := storage.Filter{UserID: userID, Query: query, Page: page}
	items, err := s.store.Budgets(ctx, f)
	if err != nil {
		return Page[core.Budget]{}, err
	}
	total, err := s.store.CountBudgets(ctx, f)
	if err != nil {
		return Page[core.Budget]{}, err
	}
	return Page[core.Budget]{Items: items, Page: page, TotalPages: storage.PageCount(total), Query: query}, nil
}

func (s *BudgetService) Get(ctx context.Context, id int64) (core.Budget, error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return core.Budget{}, forbiddenErr()
	}
	b, err := s.store.BudgetByID(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	if b.UserID != userID {
		return core.Budget{}, storage.ErrNotFound
	}
	return b, nil
}

// ListFor returns every budget of the user, unpaginated, for the JSON API.
func (s *BudgetService) ListFor(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.store.BudgetsByUser(ctx, userID)
}
