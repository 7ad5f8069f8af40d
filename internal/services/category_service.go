package services

import (
	"context"
	"net/url"

	"bilancio/internal/core"
	"bilancio/internal/forms"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// CategoryService manages the user's category list.
type CategoryService struct {
	store  storage.Store
	logger *log.Logger
}

func (s *CategoryService) Create(ctx context.Context, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParseCategory(values)
	if errs.Any() {
		return fieldFailure(errs)
	}

	id, err := s.store.CreateCategory(ctx, core.Category{UserID: userID, Name: in.Name})
	if err != nil {
		if isConflict(err) {
			fe := make(forms.FieldErrors)
			fe.Add("name", "A category with this name already exists.")
			return fieldFailure(fe)
		}
		s.logger.ErrorContext(ctx, "create category failed", log.FieldError, err, log.FieldUserID, userID)
		return databaseFailure()
	}
	return Result{ID: id}
}

func (s *CategoryService) Update(ctx context.Context, id int64, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParseCategory(values)
	if errs.Any() {
		return fieldFailure(errs)
	}

	existing, err := s.store.CategoryByID(ctx, id)
	if err != nil || existing.UserID != userID {
		return forbidden()
	}
	existing.Name = in.Name
	if err := s.store.UpdateCategory(ctx, existing); err != nil {
		if isConflict(err) {
			fe := make(forms.FieldErrors)
			fe.Add("name", "A category with this name already exists.")
			return fieldFailure(fe)
		}
		s.logger.ErrorContext(ctx, "update category failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}
	return Result{ID: id}
}

// Delete refuses to remove a category that is still referenced; the storage
// conflict surfaces as a readable message on the list page.
func (s *CategoryService) Delete(ctx context.Context, id int64) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	existing, err := s.store.CategoryByID(ctx, id)
	if err != nil || existing.UserID != userID {
		return forbidden()
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		if isConflict(err) {
			return Result{Failure: "This category is still in use and cannot be deleted."}
		}
		s.logger.ErrorContext(ctx, "delete category failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}
	return Result{ID: id}
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return nil, forbiddenErr()
	}
	return s.store.Categories(ctx, userID)
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return core.Category{}, forbiddenErr()
	}
	c, err := s.store.CategoryByID(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if c.UserID != userID {
		return core.Category{}, storage.ErrNotFound
	}
	return c, nil
}
