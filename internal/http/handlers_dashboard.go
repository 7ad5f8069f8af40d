package http

import (
	"net/http"
	"strconv"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	key := "dashboard:" + strconv.FormatInt(userID, 10) + ":"
	s.serveCached(w, r, key, func() ([]byte, error) {
		d, err := s.svc.Dashboard.Summary(r.Context(), time.Now())
		if err != nil {
			return nil, err
		}
		view := dashboardView{Dashboard: d}
		if u, err := s.svc.Users.UserByID(r.Context(), userID); err == nil {
			view.UserName = u.Name
		} else {
			s.logger.WarnContext(r.Context(), "load user failed",
				log.FieldError, err, log.FieldUserID, userID)
		}
		return s.renderBytes("dashboard.html", view)
	})
}
