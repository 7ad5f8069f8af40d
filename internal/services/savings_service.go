package services

import (
	"context"
	"net/url"

	"bilancio/internal/core"
	"bilancio/internal/forms"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// SavingsService manages savings goals and their contributions.
type SavingsService struct {
	store  storage.Store
	logger *log.Logger
}

func (s *SavingsService) Create(ctx context.Context, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParseGoal(values)
	if errs.Any() {
		return fieldFailure(errs)
	}
	if errs := ownedCategory(ctx, s.store, userID, in.CategoryID); errs != nil {
		return fieldFailure(errs)
	}

	id, err := s.store.CreateSavingsGoal(ctx, core.SavingsGoal{
		UserID:     userID,
		CategoryID: in.CategoryID,
		Name:       in.Name,
		Target:     in.Target,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "create savings goal failed", log.FieldError, err, log.FieldUserID, userID)
		return databaseFailure()
	}
	return Result{ID: id}
}

func (s *SavingsService) Update(ctx context.Context, id int64, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParseGoal(values)
	if errs.Any() {
		return fieldFailure(errs)
	}

	existing, err := s.store.SavingsGoalByID(ctx, id)
	if err != nil || existing.UserID != userID {
		return forbidden()
	}
	if errs := ownedCategory(ctx, s.store, userID, in.CategoryID); errs != nil {
		return fieldFailure(errs)
	}

	existing.Name = in.Name
	existing.Target = in.Target
	existing.CategoryID = in.CategoryID
	if err := s.store.UpdateSavingsGoal(ctx, existing); err != nil {
		s.logger.ErrorContext(ctx, "update savings goal failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}
	return Result{ID: id}
}

func (s *SavingsService) Delete(ctx context.Context, id int64) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	existing, err := s.store.SavingsGoalByID(ctx, id)
	if err != nil || existing.UserID != userID {
		return forbidden()
	}
	if err := s.store.DeleteSavingsGoal(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "delete savings goal failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}
	return Result{ID: id}
}

func (s *SavingsService) AddContribution(ctx context.Context, goalID int64, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParseContribution(values)
	if errs.Any() {
		return fieldFailure(errs)
	}

	goal, err := s.store.SavingsGoalByID(ctx, goalID)
	if err != nil || goal.UserID != userID {
		return forbidden()
	}

	id, err := s.store.CreateContribution(ctx, core.Contribution{
		GoalID: goalID,
		Amount: in.Amount,
		Date:   in.Date,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "create contribution failed", log.FieldError, err, log.FieldEntityID, goalID)
		return databaseFailure()
	}
	return Result{ID: id}
}

func (s *SavingsService) DeleteContribution(ctx context.Context, contributionID int64) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	contribution, err := s.store.ContributionByID(ctx, contributionID)
	if err != nil {
		return forbidden()
	}
	goal, err := s.store.SavingsGoalByID(ctx, contribution.GoalID)
	if err != nil || goal.UserID != userID {
		return forbidden()
	}
	if err := s.store.DeleteContribution(ctx, contributionID); err != nil {
		s.logger.ErrorContext(ctx, "delete contribution failed", log.FieldError, err, log.FieldEntityID, contributionID)
		return databaseFailure()
	}
	return Result{ID: contribution.GoalID}
}

func (s *SavingsService) Page(ctx context.Context, query string, page int) (Page[core.SavingsGoal], error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return Page[core.SavingsGoal]{}, forbiddenErr()
	}
	f := storage.Filter{UserID: userID, Query: query, Page: page}
	items, err := s.store.SavingsGoals(ctx, f)
	if err != nil {
		return Page[core.SavingsGoal]{}, err
	}
	total, err := s.store.CountSavingsGoals(ctx, f)
	if err != nil {
		return Page[core.SavingsGoal]{}, err
	}
	return Page[core.SavingsGoal]{Items: items, Page: page, TotalPages: storage.PageCount(total), Query: query}, nil
}

func (s *SavingsService) Get(ctx context.Context, id int64) (core.SavingsGoal, error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return core.SavingsGoal{}, forbiddenErr()
	}
	g, err := s.store.SavingsGoalByID(ctx, id)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if g.UserID != userID {
		return core.SavingsGoal{}, storage.ErrNotFound
	}
	return g, nil
}
