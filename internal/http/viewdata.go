package http

import (
	"net/url"

	"bilancio/internal/core"
	"bilancio/internal/forms"
	"bilancio/internal/services"
)

// formView is the data of every entity form page. Values echoes the
// submitted fields back into the inputs on a validation re-render.
type formView struct {
	Title      string
	Action     string
	Values     url.Values
	Errors     forms.FieldErrors
	Failure    string
	Categories []core.Category
	Editing    bool
}

// listView is the data of a paginated list page. Failure carries the flash
// message of a rejected delete.
type listView[T any] struct {
	Page    services.Page[T]
	Failure string
}

// authView is the data of the login and register pages.
type authView struct {
	Values  url.Values
	Errors  forms.FieldErrors
	Failure string
}

// categoriesView backs the combined category list and inline create form.
type categoriesView struct {
	Items   []core.Category
	Values  url.Values
	Errors  forms.FieldErrors
	Failure string
}

// detailView backs the debt and goal detail pages with their child rows and
// the inline add form.
type detailView[T any] struct {
	Item    T
	Values  url.Values
	Errors  forms.FieldErrors
	Failure string
}

type dashboardView struct {
	UserName  string
	Dashboard services.Dashboard
}
