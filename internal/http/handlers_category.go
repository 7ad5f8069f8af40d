package http

import "net/http"

func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Categories.List(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, "categories.html", categoriesView{Items: items})
}

func (s *Server) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Categories.Create(r.Context(), r.PostForm)
	if !res.OK() {
		items, err := s.svc.Categories.List(r.Context())
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.renderStatus(w, r, formStatus(res), "categories.html", categoriesView{
			Items:   items,
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
		})
		return
	}
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}

func (s *Server) handleCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.svc.Categories.Update(r.Context(), id, r.PostForm)
	if !res.OK() {
		items, err := s.svc.Categories.List(r.Context())
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.renderStatus(w, r, formStatus(res), "categories.html", categoriesView{
			Items:   items,
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
		})
		return
	}
	// Renaming a category changes the names shown on every list.
	s.invalidateAllLists(r)
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}

func (s *Server) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}
	res := s.svc.Categories.Delete(r.Context(), id)
	if !res.OK() {
		items, err := s.svc.Categories.List(r.Context())
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.render(w, r, "categories.html", categoriesView{
			Items:   items,
			Failure: res.Failure,
		})
		return
	}
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}
