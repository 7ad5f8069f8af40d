// Package http serves the dashboard UI and the budget JSON API.
package http

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/cache"
	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
	"bilancio/internal/storage"
	appweb "bilancio/web"
)

type Server struct {
	http.Server

	templates *template.Template
	svc       *services.Registry
	sessions  *auth.Sessions
	store     storage.Store
	logger    *log.Logger

	limiter      *ratelimit.Limiter
	resolver     *security.Resolver
	cacheManager *cache.Manager

	// Rendered list pages, keyed "<entity>:<user>:p<page>:q<query>". A write
	// drops every page of that user's entity via DeletePrefix.
	pageCache *cache.LRUCache[[]byte]

	shutdownOnce sync.Once
}

// NewServer wires routes, middleware and templates into a ready-to-run
// server.
func NewServer(addr string, svc *services.Registry, sessions *auth.Sessions, store storage.Store, logger *log.Logger) (*Server, error) {
	mux := http.NewServeMux()

	s := &Server{
		svc:          svc,
		sessions:     sessions,
		store:        store,
		logger:       logger.WithComponent(log.ComponentHTTP),
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		resolver:     security.NewResolver(),
		cacheManager: cache.NewManager(),
		pageCache:    cache.NewLRUCache[[]byte](500, 5*time.Minute),
	}

	t, err := template.New("").Funcs(template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	s.cacheManager.Register(s.pageCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /{$}", s.requireAuth(s.handleDashboard))

	mux.HandleFunc("GET /categories", s.requireAuth(s.handleCategoryList))
	mux.HandleFunc("POST /categories", s.requireAuth(s.handleCategoryCreate))
	mux.HandleFunc("POST /categories/{id}", s.requireAuth(s.handleCategoryUpdate))
	mux.HandleFunc("POST /categories/{id}/delete", s.requireAuth(s.handleCategoryDelete))

	mux.HandleFunc("GET /budgets", s.requireAuth(s.handleBudgetList))
	mux.HandleFunc("GET /budgets/new", s.requireAuth(s.handleBudgetNew))
	mux.HandleFunc("POST /budgets", s.requireAuth(s.handleBudgetCreate))
	mux.HandleFunc("GET /budgets/{id}/edit", s.requireAuth(s.handleBudgetEdit))
	mux.HandleFunc("POST /budgets/{id}", s.requireAuth(s.handleBudgetUpdate))
	mux.HandleFunc("POST /budgets/{id}/delete", s.requireAuth(s.handleBudgetDelete))

	mux.HandleFunc("GET /expenses", s.requireAuth(s.handleExpenseList))
	mux.HandleFunc("GET /expenses/new", s.requireAuth(s.handleExpenseNew))
	mux.HandleFunc("POST /expenses", s.requireAuth(s.handleExpenseCreate))
	mux.HandleFunc("GET /expenses/{id}/edit", s.requireAuth(s.handleExpenseEdit))
	mux.HandleFunc("POST /expenses/{id}", s.requireAuth(s.handleExpenseUpdate))
	mux.HandleFunc("POST /expenses/{id}/delete", s.requireAuth(s.handleExpenseDelete))

	mux.HandleFunc("GET /incomes", s.requireAuth(s.handleIncomeList))
	mux.HandleFunc("GET /incomes/new", s.requireAuth(s.handleIncomeNew))
	mux.HandleFunc("POST /incomes", s.requireAuth(s.handleIncomeCreate))
	mux.HandleFunc("GET /incomes/{id}/edit", s.requireAuth(s.handleIncomeEdit))
	mux.HandleFunc("POST /incomes/{id}", s.requireAuth(s.handleIncomeUpdate))
	mux.HandleFunc("POST /incomes/{id}/delete", s.requireAuth(s.handleIncomeDelete))

	mux.HandleFunc("GET /debts", s.requireAuth(s.handleDebtList))
	mux.HandleFunc("GET /debts/new", s.requireAuth(s.handleDebtNew))
	mux.HandleFunc("POST /debts", s.requireAuth(s.handleDebtCreate))
	mux.HandleFunc("GET /debts/{id}", s.requireAuth(s.handleDebtDetail))
	mux.HandleFunc("GET /debts/{id}/edit", s.requireAuth(s.handleDebtEdit))
	mux.HandleFunc("POST /debts/{id}", s.requireAuth(s.handleDebtUpdate))
	mux.HandleFunc("POST /debts/{id}/delete", s.requireAuth(s.handleDebtDelete))
	mux.HandleFunc("POST /debts/{id}/payments", s.requireAuth(s.handlePaymentCreate))
	mux.HandleFunc("POST /payments/{id}/delete", s.requireAuth(s.handlePaymentDelete))

	mux.HandleFunc("GET /goals", s.requireAuth(s.handleGoalList))
	mux.HandleFunc("GET /goals/new", s.requireAuth(s.handleGoalNew))
	mux.HandleFunc("POST /goals", s.requireAuth(s.handleGoalCreate))
	mux.HandleFunc("GET /goals/{id}", s.requireAuth(s.handleGoalDetail))
	mux.HandleFunc("GET /goals/{id}/edit", s.requireAuth(s.handleGoalEdit))
	mux.HandleFunc("POST /goals/{id}", s.requireAuth(s.handleGoalUpdate))
	mux.HandleFunc("POST /goals/{id}/delete", s.requireAuth(s.handleGoalDelete))
	mux.HandleFunc("POST /goals/{id}/contributions", s.requireAuth(s.handleContributionCreate))
	mux.HandleFunc("POST /contributions/{id}/delete", s.requireAuth(s.handleContributionDelete))

	// The budget API authenticates by user_id parameter, not session.
	mux.HandleFunc("GET /api/budget", s.handleAPIBudgetList)
	mux.HandleFunc("POST /api/budget", s.handleAPIBudgetCreate)
	mux.HandleFunc("PUT /api/budget", s.handleAPIBudgetUpdate)
	mux.HandleFunc("PATCH /api/budget", s.handleAPIBudgetUpdate)
	mux.HandleFunc("DELETE /api/budget", s.handleAPIBudgetDelete)

	tracer := trace.NewMiddleware(s.resolver.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(s.resolver.ExtractClientIP)

	s.Server = http.Server{
		Addr:    addr,
		Handler: headers.Middleware(limited(tracer.Middleware(mux))),
	}
	return s, nil
}

// Shutdown stops the background sweepers before draining the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// requireAuth resolves the session cookie into a context user; anonymous
// requests land on the login page.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.SessionCookie)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		userID, ok := s.sessions.Lookup(cookie.Value)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(auth.WithUser(r.Context(), userID)))
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "readiness check failed", log.FieldError, err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution failed",
			log.FieldError, err, "template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// renderStatus renders with an explicit status code, used for validation
// re-renders.
func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution failed",
			log.FieldError, err, "template", name)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "request failed", log.FieldError, err,
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// formStatus maps a rejected mutation to the re-render status: field errors
// read as unprocessable, generic failures render as a banner on a 200.
func formStatus(res services.Result) int {
	if res.Errors.Any() {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

// invalidateAllLists drops every cached list of the request's user, used
// when a category rename changes names shown across entities.
func (s *Server) invalidateAllLists(r *http.Request) {
	if userID, err := auth.UserID(r.Context()); err == nil {
		s.invalidateLists(userID, "budgets", "expenses", "incomes", "debts", "goals")
	}
}

// pathID parses the {id} segment; zero means malformed.
func pathID(r *http.Request) int64 {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// pageParam coerces the page query parameter: absent, malformed or
// non-positive reads as the first page.
func pageParam(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

func queryParam(r *http.Request) string {
	return r.URL.Query().Get("q")
}

// listCacheKey builds the page cache key for one user's list page.
func listCacheKey(entity string, userID int64, page int, query string) string {
	return entity + ":" + strconv.FormatInt(userID, 10) + ":p" + strconv.Itoa(page) + ":q" + query
}

// invalidateLists drops every cached list page of the user for the entity,
// and the dashboard which aggregates across entities.
func (s *Server) invalidateLists(userID int64, entities ...string) {
	for _, entity := range entities {
		s.pageCache.DeletePrefix(entity + ":" + strconv.FormatInt(userID, 10) + ":")
	}
	s.pageCache.DeletePrefix("dashboard:" + strconv.FormatInt(userID, 10) + ":")
}

// serveCached writes a cached page when present; otherwise it renders via
// build and stores the result.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, key string, build func() ([]byte, error)) {
	if body, ok := s.pageCache.Get(key); ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body)
		return
	}
	body, err := build()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "page render failed", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.pageCache.Set(key, body)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

// renderBytes executes a template into a buffer for caching.
func (s *Server) renderBytes(name string, data any) ([]byte, error) {
	var buf writeBuffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.b, nil
}

type writeBuffer struct{ b []byte }

func (w *writeBuffer) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
