package http

import (
	"net/http"
	"net/url"
	"strconv"

	"bilancio/internal/auth"
	"bilancio/internal/core"
)

func (s *Server) handleIncomeList(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	page, query := pageParam(r), queryParam(r)
	key := listCacheKey("incomes", userID, page, query)
	s.serveCached(w, r, key, func() ([]byte, error) {
		p, err := s.svc.Incomes.Page(r.Context(), query, page)
		if err != nil {
			return nil, err
		}
		return s.renderBytes("incomes.html", listView[core.Income]{Page: p})
	})
}

func (s *Server) handleIncomeNew(w http.ResponseWriter, r *http.Request) {
	s.renderIncomeForm(w, r, http.StatusOK, formView{
		Title:  "New Income",
		Action: "/incomes",
	})
}

func (s *Server) handleIncomeCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Incomes.Create(r.Context(), r.PostForm)
	if !res.OK() {
		s.renderIncomeForm(w, r, formStatus(res), formView{
			Title:   "New Income",
			Action:  "/incomes",
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "incomes")
	http.Redirect(w, r, "/incomes", http.StatusSeeOther)
}

func (s *Server) handleIncomeEdit(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	in, err := s.svc.Incomes.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	values := url.Values{
		"name":       {in.Name},
		"amount":     {in.Amount.Format()},
		"categoryId": {strconv.FormatInt(in.CategoryID, 10)},
		"type":       {string(in.Type)},
		"startDate":  {in.StartDate.Format(core.DateLayout)},
	}
	if in.Type == core.Regular {
		values.Set("frequency", string(in.Frequency))
		if !in.EndDate.IsZero() {
			values.Set("endDate", in.EndDate.Format(core.DateLayout))
		}
	}
	s.renderIncomeForm(w, r, http.StatusOK, formView{
		Title:   "Edit Income",
		Action:  "/incomes/" + strconv.FormatInt(id, 10),
		Values:  values,
		Editing: true,
	})
}

func (s *Server) handleIncomeUpdate(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Incomes.Update(r.Context(), id, r.PostForm)
	if !res.OK() {
		s.renderIncomeForm(w, r, formStatus(res), formView{
			Title:   "Edit Income",
			Action:  "/incomes/" + strconv.FormatInt(id, 10),
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
			Editing: true,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "incomes")
	http.Redirect(w, r, "/incomes", http.StatusSeeOther)
}

func (s *Server) handleIncomeDelete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	res := s.svc.Incomes.Delete(r.Context(), id)
	if !res.OK() {
		p, err := s.svc.Incomes.Page(r.Context(), "", 1)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.render(w, r, "incomes.html", listView[core.Income]{Page: p, Failure: res.Failure})
		return
	}
	s.invalidateLists(mustUserID(r), "incomes")
	http.Redirect(w, r, "/incomes", http.StatusSeeOther)
}

func (s *Server) renderIncomeForm(w http.ResponseWriter, r *http.Request, status int, view formView) {
	cats, err := s.svc.Categories.List(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view.Categories = cats
	s.renderStatus(w, r, status, "income_form.html", view)
}
