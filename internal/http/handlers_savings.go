package http

import (
	"net/http"
	"net/url"
	"strconv"

	"bilancio/internal/auth"
	"bilancio/internal/core"
)

func (s *Server) handleGoalList(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	page, query := pageParam(r), queryParam(r)
	key := listCacheKey("goals", userID, page, query)
	s.serveCached(w, r, key, func() ([]byte, error) {
		p, err := s.svc.Savings.Page(r.Context(), query, page)
		if err != nil {
			return nil, err
		}
		return s.renderBytes("goals.html", listView[core.SavingsGoal]{Page: p})
	})
}

func (s *Server) handleGoalNew(w http.ResponseWriter, r *http.Request) {
	s.renderGoalForm(w, r, http.StatusOK, formView{
		Title:  "New Savings Goal",
		Action: "/goals",
	})
}

func (s *Server) handleGoalCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Savings.Create(r.Context(), r.PostForm)
	if !res.OK() {
		s.renderGoalForm(w, r, formStatus(res), formView{
			Title:   "New Savings Goal",
			Action:  "/goals",
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "goals")
	http.Redirect(w, r, "/goals", http.StatusSeeOther)
}

// handleGoalDetail shows the goal with its contribution history and the add
// contribution form.
func (s *Server) handleGoalDetail(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	g, err := s.svc.Savings.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.render(w, r, "goal_detail.html", detailView[core.SavingsGoal]{Item: g})
}

func (s *Server) handleGoalEdit(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	g, err := s.svc.Savings.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.renderGoalForm(w, r, http.StatusOK, formView{
		Title:  "Edit Savings Goal",
		Action: "/goals/" + strconv.FormatInt(id, 10),
		Values: url.Values{
			"name":         {g.Name},
			"targetAmount": {g.Target.Format()},
			"categoryId":   {strconv.FormatInt(g.CategoryID, 10)},
		},
		Editing: true,
	})
}

func (s *Server) handleGoalUpdate(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Savings.Update(r.Context(), id, r.PostForm)
	if !res.OK() {
		s.renderGoalForm(w, r, formStatus(res), formView{
			Title:   "Edit Savings Goal",
			Action:  "/goals/" + strconv.FormatInt(id, 10),
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
			Editing: true,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "goals")
	http.Redirect(w, r, "/goals", http.StatusSeeOther)
}

func (s *Server) handleGoalDelete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	res := s.svc.Savings.Delete(r.Context(), id)
	if !res.OK() {
		p, err := s.svc.Savings.Page(r.Context(), "", 1)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.render(w, r, "goals.html", listView[core.SavingsGoal]{Page: p, Failure: res.Failure})
		return
	}
	s.invalidateLists(mustUserID(r), "goals")
	http.Redirect(w, r, "/goals", http.StatusSeeOther)
}

func (s *Server) handleContributionCreate(w http.ResponseWriter, r *http.Request) {
	goalID := pathID(r)
	if goalID == 0 {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Savings.AddContribution(r.Context(), goalID, r.PostForm)
	if !res.OK() {
		g, err := s.svc.Savings.Get(r.Context(), goalID)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		s.renderStatus(w, r, formStatus(res), "goal_detail.html", detailView[core.SavingsGoal]{
			Item:    g,
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
		})
		return
	}
	s.invalidateLists(mustUserID(r), "goals")
	http.Redirect(w, r, "/goals/"+strconv.FormatInt(goalID, 10), http.StatusSeeOther)
}

func (s *Server) handleContributionDelete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	res := s.svc.Savings.DeleteContribution(r.Context(), id)
	if !res.OK() {
		http.Redirect(w, r, "/goals", http.StatusSeeOther)
		return
	}
	s.invalidateLists(mustUserID(r), "goals")
	// Result carries the parent goal id.
	http.Redirect(w, r, "/goals/"+strconv.FormatInt(res.ID, 10), http.StatusSeeOther)
}

func (s *Server) renderGoalForm(w http.ResponseWriter, r *http.Request, status int, view formView) {
	cats, err := s.svc.Categories.List(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view.Categories = cats
	s.renderStatus(w, r, status, "goal_form.html", view)
}
