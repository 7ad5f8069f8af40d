package services

import (
	"context"
	"net/url"

	"bilancio/internal/core"
	"bilancio/internal/forms"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// DebtService manages debts and their payments. Payments are owned through
// their parent debt; every payment mutation re-checks the debt's owner.
type DebtService struct {
	store  storage.Store
	logger *log.Logger
}

func (s *DebtService) Create(ctx context.Context, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParseDebt(values)
	if errs.Any() {
		return fieldFailure(errs)
	}
	if errs := ownedCategory(ctx, s.store, userID, in.CategoryID); errs != nil {
		return fieldFailure(errs)
	}

	id, err := s.store.CreateDebt(ctx, core.Debt{
		UserID:       userID,
		CategoryID:   in.CategoryID,
		Name:         in.Name,
		Amount:       in.Amount,
		InterestRate: in.InterestRate,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "create debt failed", log.FieldError, err, log.FieldUserID, userID)
		return databaseFailure()
	}
	return Result{ID: id}
}

func (s *DebtService) Update(ctx context.Context, id int64, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParseDebt(values)
	if errs.Any() {
		return fieldFailure(errs)
	}

	existing, err := s.store.DebtByID(ctx, id)
	if err != nil || existing.UserID != userID {
		return forbidden()
	}
	if errs := ownedCategory(ctx, s.store, userID, in.CategoryID); errs != nil {
		return fieldFailure(errs)
	}

	existing.Name = in.Name
	existing.Amount = in.Amount
	existing.CategoryID = in.CategoryID
	existing.InterestRate = in.InterestRate
	if err := s.store.UpdateDebt(ctx, existing); err != nil {
		s.logger.ErrorContext(ctx, "update debt failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}
	return Result{ID: id}
}

// Delete removes the debt and, through the schema cascade, its payments.
func (s *DebtService) Delete(ctx context.Context, id int64) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	existing, err := s.store.DebtByID(ctx, id)
	if err != nil || existing.UserID != userID {
		return forbidden()
	}
	if err := s.store.DeleteDebt(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "delete debt failed", log.FieldError, err, log.FieldEntityID, id)
		return databaseFailure()
	}
	return Result{ID: id}
}

func (s *DebtService) AddPayment(ctx context.Context, debtID int64, values url.Values) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	in, errs := forms.ParsePayment(values)
	if errs.Any() {
		return fieldFailure(errs)
	}

	debt, err := s.store.DebtByID(ctx, debtID)
	if err != nil || debt.UserID != userID {
		return forbidden()
	}

	id, err := s.store.CreateDebtPayment(ctx, core.DebtPayment{
		DebtID: debtID,
		Amount: in.Amount,
		Date:   in.Date,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "create debt payment failed", log.FieldError, err, log.FieldEntityID, debtID)
		return databaseFailure()
	}
	return Result{ID: id}
}

func (s *DebtService) DeletePayment(ctx context.Context, paymentID int64) Result {
	userID, ok := userFrom(ctx)
	if !ok {
		return forbidden()
	}
	payment, err := s.store.DebtPaymentByID(ctx, paymentID)
	if err != nil {
		return forbidden()
	}
	debt, err := s.store.DebtByID(ctx, payment.DebtID)
	if err != nil || debt.UserID != userID {
		return forbidden()
	}
	if err := s.store.DeleteDebtPayment(ctx, paymentID); err != nil {
		s.logger.ErrorContext(ctx, "delete debt payment failed", log.FieldError, err, log.FieldEntityID, paymentID)
		return databaseFailure()
	}
	return Result{ID: payment.DebtID}
}

func (s *DebtService) Page(ctx context.Context, query string, page int) (Page[core.Debt], error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return Page[core.Debt]{}, forbiddenErr()
	}
	f := storage.Filter{UserID: userID, Query: query, Page: page}
	items, err := s.store.Debts(ctx, f)
	if err != nil {
		return Page[core.Debt]{}, err
	}
	total, err := s.store.CountDebts(ctx, f)
	if err != nil {
		return Page[core.Debt]{}, err
	}
	return Page[core.Debt]{Items: items, Page: page, TotalPages: storage.PageCount(total), Query: query}, nil
}

func (s *DebtService) Get(ctx context.Context, id int64) (core.Debt, error) {
	userID, ok := userFrom(ctx)
	if !ok {
		return core.Debt{}, forbiddenErr()
	}
	d, err := s.store.DebtByID(ctx, id)
	if err != nil {
		return core.Debt{}, err
	}
	if d.UserID != userID {
		return core.Debt{}, storage.ErrNotFound
	}
	return d, nil
}
