package http

import (
	"net/http"
	"net/url"
	"strconv"

	"bilancio/internal/auth"
	"bilancio/internal/core"
)

func (s *Server) handleDebtList(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	page, query := pageParam(r), queryParam(r)
	key := listCacheKey("debts", userID, page, query)
	s.serveCached(w, r, key, func() ([]byte, error) {
		p, err := s.svc.Debts.Page(r.Context(), query, page)
		if err != nil {
			return nil, err
		}
		return s.renderBytes("debts.html", listView[core.Debt]{Page: p})
	})
}

func (s *Server) handleDebtNew(w http.ResponseWriter, r *http.Request) {
	s.renderDebtForm(w, r, http.StatusOK, formView{
		Title:  "New Debt",
		Action: "/debts",
	})
}

func (s *Server) handleDebtCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Debts.Create(r.Context(), r.PostForm)
	if !res.OK() {
		s.renderDebtForm(w, r, formStatus(res), formView{
			Title:   "New Debt",
			Action:  "/debts",
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "debts")
	http.Redirect(w, r, "/debts", http.StatusSeeOther)
}

// handleDebtDetail shows the debt with its payment history and the add
// payment form.
func (s *Server) handleDebtDetail(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	d, err := s.svc.Debts.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.render(w, r, "debt_detail.html", detailView[core.Debt]{Item: d})
}

func (s *Server) handleDebtEdit(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	d, err := s.svc.Debts.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.renderDebtForm(w, r, http.StatusOK, formView{
		Title:  "Edit Debt",
		Action: "/debts/" + strconv.FormatInt(id, 10),
		Values: url.Values{
			"name":         {d.Name},
			"amount":       {d.Amount.Format()},
			"categoryId":   {strconv.FormatInt(d.CategoryID, 10)},
			"interestRate": {strconv.FormatFloat(d.InterestRate, 'f', -1, 64)},
		},
		Editing: true,
	})
}

func (s *Server) handleDebtUpdate(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Debts.Update(r.Context(), id, r.PostForm)
	if !res.OK() {
		s.renderDebtForm(w, r, formStatus(res), formView{
			Title:   "Edit Debt",
			Action:  "/debts/" + strconv.FormatInt(id, 10),
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
			Editing: true,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "debts")
	http.Redirect(w, r, "/debts", http.StatusSeeOther)
}

func (s *Server) handleDebtDelete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	res := s.svc.Debts.Delete(r.Context(), id)
	if !res.OK() {
		p, err := s.svc.Debts.Page(r.Context(), "", 1)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.render(w, r, "debts.html", listView[core.Debt]{Page: p, Failure: res.Failure})
		return
	}
	s.invalidateLists(mustUserID(r), "debts")
	http.Redirect(w, r, "/debts", http.StatusSeeOther)
}

func (s *Server) handlePaymentCreate(w http.ResponseWriter, r *http.Request) {
	debtID := pathID(r)
	if debtID == 0 {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Debts.AddPayment(r.Context(), debtID, r.PostForm)
	if !res.OK() {
		d, err := s.svc.Debts.Get(r.Context(), debtID)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		s.renderStatus(w, r, formStatus(res), "debt_detail.html", detailView[core.Debt]{
			Item:    d,
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "debts")
	http.Redirect(w, r, "/debts/"+strconv.FormatInt(debtID, 10), http.StatusSeeOther)
}

func (s *Server) handlePaymentDelete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	res := s.svc.Debts.DeletePayment(r.Context(), id)
	if !res.OK() {
		http.Redirect(w, r, "/debts", http.StatusSeeOther)
		return
	}
	s.invalidateLists(mustUserID(r), "debts")
	// Result carries the parent debt id.
	http.Redirect(w, r, "/debts/"+strconv.FormatInt(res.ID, 10), http.StatusSeeOther)
}

func (s *Server) renderDebtForm(w http.ResponseWriter, r *http.Request, status int, view formView) {
	cats, err := s.svc.Categories.List(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view.Categories = cats
	s.renderStatus(w, r, status, "debt_form.html", view)
}
