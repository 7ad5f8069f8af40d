package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

// The budget API is the one unauthenticated surface: callers identify the
// account by user_id instead of a session, matching the sheet-sync tooling
// that consumes it.

type apiBudget struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"userId"`
	CategoryID   int64  `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Amount       string `json:"amount"`
	YearMonth    string `json:"yearMonth"`
}

type apiBudgetPayload struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"userId"`
	CategoryID int64       `json:"categoryId"`
	Amount     json.Number `json:"amount"`
	YearMonth  string      `json:"yearMonth"`
}

func (s *Server) handleAPIBudgetList(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "A valid user_id parameter is required.",
		})
		return
	}

	budgets, err := s.svc.Budgets.ListFor(r.Context(), userID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list budgets failed", log.FieldError, err, log.FieldUserID, userID)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": services.FailureDatabase})
		return
	}

	out := make([]apiBudget, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toAPIBudget(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": out})
}

func (s *Server) handleAPIBudgetCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodeBudgetPayload(w, r)
	if !ok {
		return
	}
	res := s.svc.Budgets.CreateFor(r.Context(), p.UserID, p.formValues())
	if res.OK() {
		s.invalidateLists(p.UserID, "budgets")
	}
	s.writeBudgetResult(w, res, http.StatusCreated, "Budget created.")
}

func (s *Server) handleAPIBudgetUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodeBudgetPayload(w, r)
	if !ok {
		return
	}
	if p.ID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "A valid id is required."})
		return
	}
	res := s.svc.Budgets.UpdateFor(r.Context(), p.UserID, p.ID, p.formValues())
	if res.OK() {
		s.invalidateLists(p.UserID, "budgets")
	}
	s.writeBudgetResult(w, res, http.StatusOK, "Budget updated.")
}

func (s *Server) handleAPIBudgetDelete(w http.ResponseWriter, r *http.Request) {
	var p apiBudgetPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Malformed JSON body."})
		return
	}
	if p.UserID <= 0 || p.ID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "A valid id and userId are required."})
		return
	}
	res := s.svc.Budgets.DeleteFor(r.Context(), p.UserID, p.ID)
	if res.OK() {
		s.invalidateLists(p.UserID, "budgets")
	}
	s.writeBudgetResult(w, res, http.StatusOK, "Budget deleted.")
}

func (s *Server) decodeBudgetPayload(w http.ResponseWriter, r *http.Request) (apiBudgetPayload, bool) {
	var p apiBudgetPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Malformed JSON body."})
		return p, false
	}
	if p.UserID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "A valid userId is required."})
		return p, false
	}
	return p, true
}

// formValues re-expresses the JSON payload as form values so the API shares
// the form validation path.
func (p apiBudgetPayload) formValues() url.Values {
	values := url.Values{}
	if p.CategoryID > 0 {
		values.Set("categoryId", strconv.FormatInt(p.CategoryID, 10))
	}
	values.Set("amount", p.Amount.String())
	values.Set("yearMonth", p.YearMonth)
	return values
}

func (s *Server) writeBudgetResult(w http.ResponseWriter, res services.Result, okStatus int, okMessage string) {
	switch {
	case res.OK():
		writeJSON(w, okStatus, map[string]any{"message": okMessage, "id": res.ID})
	case res.Errors.Any():
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Validation failed.",
			"errors":  res.Errors,
		})
	case res.Failure == services.FailureNotFound:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": res.Failure})
	case res.Failure == services.FailureForbidden:
		writeJSON(w, http.StatusForbidden, map[string]any{"message": res.Failure})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": res.Failure})
	}
}

func toAPIBudget(b core.Budget) apiBudget {
	return apiBudget{
		ID:           b.ID,
		UserID:       b.UserID,
		CategoryID:   b.CategoryID,
		CategoryName: b.CategoryName,
		Amount:       b.Amount.Format(),
		YearMonth:    b.YearMonth,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
