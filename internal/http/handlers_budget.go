package http

import (
	"net/http"
	"net/url"
	"strconv"

	"bilancio/internal/auth"
	"bilancio/internal/core"
)

func (s *Server) handleBudgetList(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	page, query := pageParam(r), queryParam(r)
	key := listCacheKey("budgets", userID, page, query)
	s.serveCached(w, r, key, func() ([]byte, error) {
		p, err := s.svc.Budgets.Page(r.Context(), query, page)
		if err != nil {
			return nil, err
		}
		return s.renderBytes("budgets.html", listView[core.Budget]{Page: p})
	})
}

func (s *Server) handleBudgetNew(w http.ResponseWriter, r *http.Request) {
	s.renderBudgetForm(w, r, http.StatusOK, formView{
		Title:  "New Budget",
		Action: "/budgets",
	})
}

func (s *Server) handleBudgetCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Budgets.Create(r.Context(), r.PostForm)
	if !res.OK() {
		s.renderBudgetForm(w, r, formStatus(res), formView{
			Title:   "New Budget",
			Action:  "/budgets",
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "budgets")
	http.Redirect(w, r, "/budgets", http.StatusSeeOther)
}

func (s *Server) handleBudgetEdit(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	b, err := s.svc.Budgets.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.renderBudgetForm(w, r, http.StatusOK, formView{
		Title:  "Edit Budget",
		Action: "/budgets/" + strconv.FormatInt(id, 10),
		Values: url.Values{
			"categoryId": {strconv.FormatInt(b.CategoryID, 10)},
			"amount":     {b.Amount.Format()},
			"yearMonth":  {b.YearMonth},
		},
		Editing: true,
	})
}

func (s *Server) handleBudgetUpdate(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Budgets.Update(r.Context(), id, r.PostForm)
	if !res.OK() {
		s.renderBudgetForm(w, r, formStatus(res), formView{
			Title:   "Edit Budget",
			Action:  "/budgets/" + strconv.FormatInt(id, 10),
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
			Editing: true,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "budgets")
	http.Redirect(w, r, "/budgets", http.StatusSeeOther)
}

func (s *Server) handleBudgetDelete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	res := s.svc.Budgets.Delete(r.Context(), id)
	if !res.OK() {
		p, err := s.svc.Budgets.Page(r.Context(), "", 1)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.render(w, r, "budgets.html", listView[core.Budget]{Page: p, Failure: res.Failure})
		return
	}
	s.invalidateLists(mustUserID(r), "budgets")
	http.Redirect(w, r, "/budgets", http.StatusSeeOther)
}

func (s *Server) renderBudgetForm(w http.ResponseWriter, r *http.Request, status int, view formView) {
	cats, err := s.svc.Categories.List(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view.Categories = cats
	s.renderStatus(w, r, status, "budget_form.html", view)
}

// mustUserID reads the authenticated user from a request that already passed
// requireAuth.
func mustUserID(r *http.Request) int64 {
	id, _ := auth.UserID(r.Context())
	return id
}
