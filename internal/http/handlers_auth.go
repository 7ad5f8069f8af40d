package http

import (
	"net/http"

	"bilancio/internal/auth"
	"bilancio/internal/log"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", authView{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	userID, res := s.svc.Users.Login(r.Context(), r.PostForm)
	if !res.OK() {
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "login.html", authView{
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
		})
		return
	}

	token, err := s.sessions.Start(userID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "session start failed", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.setSessionCookie(w, r, token)
	s.logger.InfoContext(r.Context(), "user logged in", log.FieldUserID, userID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", authView{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	res := s.svc.Users.Register(r.Context(), r.PostForm)
	if !res.OK() {
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "register.html", authView{
			Values:  r.PostForm,
			Errors:  res.Errors,
			Failure: res.Failure,
		})
		return
	}

	token, err := s.sessions.Start(res.ID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "session start failed", log.FieldError, err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.setSessionCookie(w, r, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		s.sessions.Destroy(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
