// Package services holds the write and read orchestration between forms,
// storage and the report sync queue. Every mutation follows the same shape:
// validate, check ownership, write once, then publish a best-effort sync
// message. A failed publish never fails the request.
package services

import (
	"context"
	"errors"

	"bilancio/internal/auth"
	"bilancio/internal/forms"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// Publisher enqueues a report refresh for one user-month. The AMQP client
// satisfies it; tests plug in a recorder.
type Publisher interface {
	PublishReportSync(ctx context.Context, userID int64, yearMonth string) error
}

// Generic failure messages. Storage problems are logged with detail but
// surface as an opaque message; authorization problems never reveal whether
// the record exists.
const (
	FailureDatabase  = "Database Error"
	FailureForbidden = "You are not allowed to do that."
	FailureNotFound  = "Not found."
)

// Result is the outcome of a mutation. Exactly one of the three states
// holds: OK, field errors, or a generic failure.
type Result struct {
	ID        int64
	YearMonth string
	Errors    forms.FieldErrors
	Failure   string
}

func (r Result) OK() bool {
	return !r.Errors.Any() && r.Failure == ""
}

func fieldFailure(errs forms.FieldErrors) Result { return Result{Errors: errs} }
func forbidden() Result                          { return Result{Failure: FailureForbidden} }
func databaseFailure() Result                    { return Result{Failure: FailureDatabase} }
func notFound() Result                           { return Result{Failure: FailureNotFound} }

// Page is one page of a list read.
type Page[T any] struct {
	Items      []T
	Page       int
	TotalPages int
	Query      string
}

// Registry wires every service over one store and publisher.
type Registry struct {
	Users      *UserService
	Categories *CategoryService
	Budgets    *BudgetService
	Expenses   *ExpenseService
	Incomes    *IncomeService
	Debts      *DebtService
	Savings    *SavingsService
	Dashboard  *DashboardService
}

func NewRegistry(store storage.Store, publisher Publisher, logger *log.Logger) *Registry {
	return &Registry{
		Users:      &UserService{store: store, logger: logger.WithComponent(log.ComponentAuth)},
		Categories: &CategoryService{store: store, logger: logger.WithComponent("category")},
		Budgets:    &BudgetService{store: store, publisher: publisher, logger: logger.WithComponent("budget")},
		Expenses:   &ExpenseService{store: store, publisher: publisher, logger: logger.WithComponent("expense")},
		Incomes:    &IncomeService{store: store, publisher: publisher, logger: logger.WithComponent("income")},
		Debts:      &DebtService{store: store, logger: logger.WithComponent("debt")},
		Savings:    &SavingsService{store: store, logger: logger.WithComponent("savings")},
		Dashboard:  &DashboardService{store: store, logger: logger.WithComponent("dashboard")},
	}
}

// ownedCategory verifies the referenced category exists and belongs to the
// user. A miss reads as a validation error on the category field so the form
// cannot probe other users' category ids.
func ownedCategory(ctx context.Context, store storage.CategoryStore, userID, categoryID int64) forms.FieldErrors {
	cat, err := store.CategoryByID(ctx, categoryID)
	if err != nil || cat.UserID != userID {
		errs := make(forms.FieldErrors)
		errs.Add("categoryId", "Unknown category.")
		return errs
	}
	return nil
}

func userFrom(ctx context.Context) (int64, bool) {
	id, err := auth.UserID(ctx)
	return id, err == nil
}

func forbiddenErr() error { return auth.ErrUnauthenticated }

func isNotFound(err error) bool { return errors.Is(err, storage.ErrNotFound) }
func isConflict(err error) bool { return errors.Is(err, storage.ErrConflict) }

func publish(ctx context.Context, p Publisher, logger *log.Logger, userID int64, yearMonth string) {
	if p == nil {
		return
	}
	if err := p.PublishReportSync(ctx, userID, yearMonth); err != nil {
		logger.WarnContext(ctx, "report sync publish failed",
			log.FieldError, err,
			log.FieldUserID, userID,
			log.FieldYearMonth, yearMonth)
	}
}
