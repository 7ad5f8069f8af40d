package forms

import (
	"net/url"
	"strings"
	"time"

	"bilancio/internal/core"
)

// Per-entity schemas. Each parse function reads the recognized fields for
// its entity and returns either a typed input or the field-error map.

type (
	CategoryInput struct {
		Name string
	}

	BudgetInput struct {
		CategoryID int64
		Amount     core.Money
		YearMonth  string
	}

	ExpenseInput struct {
		Name       string
		Amount     core.Money
		CategoryID int64
		Date       time.Time
	}

	IncomeInput struct {
		Name       string
		Amount     core.Money
		CategoryID int64
		Type       core.IncomeType
		Frequency  core.Frequency
		StartDate  time.Time
		EndDate    time.Time
	}

	DebtInput struct {
		Name         string
		Amount       core.Money
		CategoryID   int64
		InterestRate float64
	}

	PaymentInput struct {
		Amount core.Money
		Date   time.Time
	}

	GoalInput struct {
		Name       string
		Target     core.Money
		CategoryID int64
	}

	ContributionInput struct {
		Amount core.Money
		Date   time.Time
	}

	RegisterInput struct {
		Email    string
		Name     string
		Password string
	}

	LoginInput struct {
		Email    string
		Password string
	}
)

func ParseCategory(values url.Values) (CategoryInput, FieldErrors) {
	f := New(values)
	in := CategoryInput{Name: f.Required("name", 60)}
	return in, f.Errors()
}

func ParseBudget(values url.Values) (BudgetInput, FieldErrors) {
	f := New(values)
	in := BudgetInput{
		CategoryID: f.ID("categoryId"),
		Amount:     f.Money("amount"),
		YearMonth:  f.YearMonth("yearMonth"),
	}
	return in, f.Errors()
}

func ParseExpense(values url.Values) (ExpenseInput, FieldErrors) {
	f := New(values)
	in := ExpenseInput{
		Name:       f.Required("name", 120),
		Amount:     f.Money("amount"),
		CategoryID: f.ID("categoryId"),
		Date:       f.Date("date"),
	}
	return in, f.Errors()
}

// ParseIncome enforces the type-dependent fields: a REGULAR income requires
// a frequency and may carry an end date after its start; an IRREGULAR income
// drops both.
func ParseIncome(values url.Values) (IncomeInput, FieldErrors) {
	f := New(values)
	in := IncomeInput{
		Name:       f.Required("name", 120),
		Amount:     f.Money("amount"),
		CategoryID: f.ID("categoryId"),
		Type:       core.IncomeType(f.Enum("type", string(core.Regular), string(core.Irregular))),
		StartDate:  f.Date("startDate"),
	}
	switch in.Type {
	case core.Regular:
		in.Frequency = core.Frequency(f.Enum("frequency",
			string(core.Weekly), string(core.Monthly), string(core.Yearly)))
		in.EndDate = f.OptionalDate("endDate")
		if !in.EndDate.IsZero() && !in.StartDate.IsZero() && in.EndDate.Before(in.StartDate) {
			f.errs.Add("endDate", "End date must be after the start date.")
		}
	case core.Irregular:
		in.Frequency = ""
		in.EndDate = time.Time{}
	}
	return in, f.Errors()
}

func ParseDebt(values url.Values) (DebtInput, FieldErrors) {
	f := New(values)
	in := DebtInput{
		Name:         f.Required("name", 120),
		Amount:       f.Money("amount"),
		CategoryID:   f.ID("categoryId"),
		InterestRate: f.Rate("interestRate"),
	}
	return in, f.Errors()
}

func ParsePayment(values url.Values) (PaymentInput, FieldErrors) {
	f := New(values)
	in := PaymentInput{
		Amount: f.Money("amount"),
		Date:   f.Date("date"),
	}
	return in, f.Errors()
}

func ParseGoal(values url.Values) (GoalInput, FieldErrors) {
	f := New(values)
	in := GoalInput{
		Name:       f.Required("name", 120),
		Target:     f.Money("targetAmount"),
		CategoryID: f.ID("categoryId"),
	}
	return in, f.Errors()
}

func ParseContribution(values url.Values) (ContributionInput, FieldErrors) {
	f := New(values)
	in := ContributionInput{
		Amount: f.Money("amount"),
		Date:   f.Date("date"),
	}
	return in, f.Errors()
}

func ParseRegister(values url.Values) (RegisterInput, FieldErrors) {
	f := New(values)
	in := RegisterInput{
		Email:    f.Required("email", 254),
		Name:     f.Required("name", 120),
		Password: f.Raw("password"),
	}
	if in.Email != "" && !looksLikeEmail(in.Email) {
		f.errs.Add("email", "Please enter a valid email address.")
	}
	if len(in.Password) < 8 {
		f.errs.Add("password", "Password must be at least 8 characters.")
	}
	return in, f.Errors()
}

func ParseLogin(values url.Values) (LoginInput, FieldErrors) {
	f := New(values)
	in := LoginInput{
		Email:    f.Required("email", 254),
		Password: f.Raw("password"),
	}
	if in.Password == "" {
		f.errs.Add("password", "This field is required.")
	}
	return in, f.Errors()
}

func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}
