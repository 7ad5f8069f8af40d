package http

import (
	"net/http"
	"net/url"
	"strconv"

	"bilancio/internal/auth"
	"bilancio/internal/core"
)

func (s *Server) handleExpenseList(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	page, query := pageParam(r), queryParam(r)
	key := listCacheKey("expenses", userID, page, query)
	s.serveCached(w, r, key, func() ([]byte, error) {
		p, err := s.svc.Expenses.Page(r.Context(), query, page)
		if err != nil {
			return nil, err
		}
		return s.renderBytes("expenses.html", listView[core.Expense]{Page: p})
	})
}

func (s *Server) handleExpenseNew(w http.ResponseWriter, r *http.Request) {
	s.renderExpenseForm(w, r, http.StatusOK, formView{
		Title:  "New Expense",
		Action: "/expenses",
	})
}

func (s *Server) handleExpenseCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Expenses.Create(r.Context(), r.PostForm)
	if !res.OK() {
		s.renderExpenseForm(w, r, formStatus(res), formView{
			Title:   "New Expense",
			Action:  "/expenses",
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "expenses")
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleExpenseEdit(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	e, err := s.svc.Expenses.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.renderExpenseForm(w, r, http.StatusOK, formView{
		Title:  "Edit Expense",
		Action: "/expenses/" + strconv.FormatInt(id, 10),
		Values: url.Values{
			"name":       {e.Name},
			"amount":     {e.Amount.Format()},
			"categoryId": {strconv.FormatInt(e.CategoryID, 10)},
			"date":       {e.Date.Format(core.DateLayout)},
		},
		Editing: true,
	})
}

func (s *Server) handleExpenseUpdate(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Expenses.Update(r.Context(), id, r.PostForm)
	if !res.OK() {
		s.renderExpenseForm(w, r, formStatus(res), formView{
			Title:   "Edit Expense",
			Action:  "/expenses/" + strconv.FormatInt(id, 10),
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
			Editing: true,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "expenses")
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleExpenseDelete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	res := s.svc.Expenses.Delete(r.Context(), id)
	if !res.OK() {
		p, err := s.svc.Expenses.Page(r.Context(), "", 1)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.render(w, r, "expenses.html", listView[core.Expense]{Page: p, Failure: res.Failure})
		return
	}
	s.invalidateLists(mustUserID(r), "expenses")
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) renderExpenseForm(w http.ResponseWriter, r *http.Request, status int, view formView) {
	cats, err := s.svc.Categories.List(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view.Categories = cats
	s.renderStatus(w, r, status, "expense_form.html", view)
}
