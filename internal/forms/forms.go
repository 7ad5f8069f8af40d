// Package forms turns raw form values into validated, typed input records.
//
// Each entity declares its schema as a parse function built on Form, which
// accumulates per-field error messages instead of failing on the first
// problem. Mutations never reach storage while the error map is non-empty.
package forms

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
)

// FieldErrors maps a form field name to its human-readable error messages.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Any reports whether at least one field failed validation.
func (e FieldErrors) Any() bool {
	return len(e) > 0
}

// Form wraps submitted key/value pairs with typed, validating accessors.
type Form struct {
	values url.Values
	errs   FieldErrors
}

func New(values url.Values) *Form {
	return &Form{values: values, errs: make(FieldErrors)}
}

// Errors returns the accumulated field errors, or nil when every accessor
// succeeded.
func (f *Form) Errors() FieldErrors {
	if f.errs.Any() {
		return f.errs
	}
	return nil
}

// Raw returns the sanitized, trimmed value without validating it.
func (f *Form) Raw(field string) string {
	return sanitize(f.values.Get(field))
}

// Required returns a non-empty string of at most maxLen runes.
func (f *Form) Required(field string, maxLen int) string {
	v := f.Raw(field)
	if v == "" {
		f.errs.Add(field, "This field is required.")
		return ""
	}
	if len([]rune(v)) > maxLen {
		f.errs.Add(field, "Must be at most "+strconv.Itoa(maxLen)+" characters.")
		return ""
	}
	return v
}

// Optional returns the value, flagging only length violations.
func (f *Form) Optional(field string, maxLen int) string {
	v := f.Raw(field)
	if v != "" && len([]rune(v)) > maxLen {
		f.errs.Add(field, "Must be at most "+strconv.Itoa(maxLen)+" characters.")
		return ""
	}
	return v
}

// Money parses a required positive decimal amount.
func (f *Form) Money(field string) core.Money {
	v := f.Raw(field)
	if v == "" {
		f.errs.Add(field, "This field is required.")
		return core.Money{}
	}
	cents, err := core.ParseDecimalToCents(v)
	if err != nil {
		f.errs.Add(field, "Please enter an amount greater than zero.")
		return core.Money{}
	}
	return core.Money{Cents: cents}
}

// Date parses a required calendar date in 2006-01-02 form.
func (f *Form) Date(field string) time.Time {
	v := f.Raw(field)
	if v == "" {
		f.errs.Add(field, "This field is required.")
		return time.Time{}
	}
	t, err := time.Parse(core.DateLayout, v)
	if err != nil {
		f.errs.Add(field, "Please enter a valid date.")
		return time.Time{}
	}
	return t
}

// OptionalDate parses a date when present, zero time otherwise.
func (f *Form) OptionalDate(field string) time.Time {
	v := f.Raw(field)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(core.DateLayout, v)
	if err != nil {
		f.errs.Add(field, "Please enter a valid date.")
		return time.Time{}
	}
	return t
}

// ID parses a required positive integer identifier.
func (f *Form) ID(field string) int64 {
	v := f.Raw(field)
	if v == "" {
		f.errs.Add(field, "This field is required.")
		return 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		f.errs.Add(field, "Invalid identifier.")
		return 0
	}
	return id
}

// Enum validates membership of the value in the allowed set.
func (f *Form) Enum(field string, allowed ...string) string {
	v := f.Raw(field)
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	f.errs.Add(field, "Invalid value.")
	return ""
}

// YearMonth parses a required "2006-01" bucket key.
func (f *Form) YearMonth(field string) string {
	v := f.Raw(field)
	if v == "" {
		f.errs.Add(field, "This field is required.")
		return ""
	}
	if !core.ValidYearMonth(v) {
		f.errs.Add(field, "Please use the YYYY-MM format.")
		return ""
	}
	return v
}

// Rate parses a required percentage in [0, 100].
func (f *Form) Rate(field string) float64 {
	v := f.Raw(field)
	if v == "" {
		f.errs.Add(field, "This field is required.")
		return 0
	}
	r, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil || r < 0 || r > 100 {
		f.errs.Add(field, "Please enter a rate between 0 and 100.")
		return 0
	}
	return r
}

// sanitize trims whitespace and strips control characters except tab,
// newline and carriage return.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
