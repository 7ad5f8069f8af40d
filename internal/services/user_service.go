package services

import (
	"context"
	"net/url"

	"bilancio/internal/auth"
	"bilancio/internal/core"
	"bilancio/internal/forms"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// UserService handles account registration and credential checks.
type UserService struct {
	store  storage.Store
	logger *log.Logger
}

// Register creates an account from the sign-up form. A taken email reads as
// a field error on the email field.
func (s *UserService) Register(ctx context.Context, values url.Values) Result {
	in, errs := forms.ParseRegister(values)
	if errs.Any() {
		return fieldFailure(errs)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "password hash failed", log.FieldError, err)
		return databaseFailure()
	}

	id, err := s.store.CreateUser(ctx, core.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
	})
	if err != nil {
		if isConflict(err) {
			fe := make(forms.FieldErrors)
			fe.Add("email", "An account with this email already exists.")
			return fieldFailure(fe)
		}
		s.logger.ErrorContext(ctx, "create user failed", log.FieldError, err)
		return databaseFailure()
	}

	s.logger.InfoContext(ctx, "user registered", log.FieldUserID, id)
	return Result{ID: id}
}

// Login checks the credentials and returns the user id. A wrong email and a
// wrong password produce the same error so accounts cannot be enumerated.
func (s *UserService) Login(ctx context.Context, values url.Values) (int64, Result) {
	in, errs := forms.ParseLogin(values)
	if errs.Any() {
		return 0, fieldFailure(errs)
	}

	u, err := s.store.UserByEmail(ctx, in.Email)
	if err != nil {
		if isNotFound(err) {
			return 0, invalidCredentials()
		}
		s.logger.ErrorContext(ctx, "lookup user failed", log.FieldError, err)
		return 0, databaseFailure()
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return 0, invalidCredentials()
	}
	return u.ID, Result{ID: u.ID}
}

func invalidCredentials() Result {
	fe := make(forms.FieldErrors)
	fe.Add("email", "Invalid email or password.")
	return fieldFailure(fe)
}

// UserByID loads a user record for display.
func (s *UserService) UserByID(ctx context.Context, id int64) (core.User, error) {
	return s.store.UserByID(ctx, id)
}
