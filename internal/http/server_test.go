package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	sessions := auth.NewSessions(time.Hour)
	registry := services.NewRegistry(store, nil, logger)

	srv, err := NewServer(":0", registry, sessions, store, logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		sessions.Close()
	})
	return srv
}

func doForm(srv *Server, method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func doJSON(srv *Server, method, path string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the form flow and returns the session
// cookie.
func register(t *testing.T, srv *Server, email string) *http.Cookie {
	t.Helper()
	rec := doForm(srv, http.MethodPost, "/register", url.Values{
		"email":    {email},
		"name":     {"Test User"},
		"password": {"supersecret"},
	}, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("register expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	t.Fatal("register did not set a session cookie")
	return nil
}

func createCategory(t *testing.T, srv *Server, cookie *http.Cookie, name string) {
	t.Helper()
	rec := doForm(srv, http.MethodPost, "/categories", url.Values{"name": {name}}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create category expected 303, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doForm(srv, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}

	rec = doForm(srv, http.MethodGet, "/readyz", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ready" {
		t.Fatalf("readyz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAnonymousRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/", "/expenses", "/budgets", "/debts"} {
		rec := doForm(srv, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
			t.Fatalf("%s expected redirect to /login, got %d %q", path, rec.Code, rec.Header().Get("Location"))
		}
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	srv := newTestServer(t)
	cookie := register(t, srv, "ada@example.com")

	rec := doForm(srv, http.MethodGet, "/", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard with session expected 200, got %d", rec.Code)
	}

	t.Run("wrong password re-renders", func(t *testing.T) {
		rec := doForm(srv, http.MethodPost, "/login", url.Values{
			"email":    {"ada@example.com"},
			"password": {"wrong-password"},
		}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Invalid email or password.") {
			t.Fatal("expected the generic credential message")
		}
	})

	t.Run("login issues a fresh session", func(t *testing.T) {
		rec := doForm(srv, http.MethodPost, "/login", url.Values{
			"email":    {"ada@example.com"},
			"password": {"supersecret"},
		}, nil)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
			t.Fatalf("expected 303 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		rec := doForm(srv, http.MethodPost, "/logout", nil, cookie)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("logout expected 303, got %d", rec.Code)
		}
		rec = doForm(srv, http.MethodGet, "/", nil, cookie)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("stale session should redirect, got %d", rec.Code)
		}
	})
}

func TestExpenseFormFlow(t *testing.T) {
	srv := newTestServer(t)
	cookie := register(t, srv, "ada@example.com")
	createCategory(t, srv, cookie, "Food")

	t.Run("create redirects to the list", func(t *testing.T) {
		rec := doForm(srv, http.MethodPost, "/expenses", url.Values{
			"name":       {"Groceries"},
			"amount":     {"42.50"},
			"categoryId": {"2"},
			"date":       {"2024-03-15"},
		}, cookie)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/expenses" {
			t.Fatalf("expected 303 to /expenses, got %d %q: %s", rec.Code, rec.Header().Get("Location"), rec.Body.String())
		}
	})

	t.Run("list shows the expense", func(t *testing.T) {
		rec := doForm(srv, http.MethodGet, "/expenses", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "Groceries") || !strings.Contains(body, "42.50") {
			t.Fatal("list should show the created expense")
		}
	})

	t.Run("invalid form re-renders with errors", func(t *testing.T) {
		rec := doForm(srv, http.MethodPost, "/expenses", url.Values{
			"name": {"Broken"},
		}, cookie)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "This field is required.") {
			t.Fatal("expected field errors in the re-render")
		}
	})

	t.Run("other user's list stays empty", func(t *testing.T) {
		other := register(t, srv, "eve@example.com")
		rec := doForm(srv, http.MethodGet, "/expenses", nil, other)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "Groceries") {
			t.Fatal("expense must not leak across users")
		}
	})
}

func TestBudgetAPI(t *testing.T) {
	srv := newTestServer(t)
	cookie := register(t, srv, "ada@example.com")
	createCategory(t, srv, cookie, "Food")
	// register creates user id 1 and the category id 2

	t.Run("list requires user_id", func(t *testing.T) {
		rec := doJSON(srv, http.MethodGet, "/api/budget", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("create", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPost, "/api/budget", map[string]any{
			"userId":     1,
			"categoryId": 2,
			"amount":     "400.00",
			"yearMonth":  "2024-03",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var out struct {
			Message string `json:"message"`
			ID      int64  `json:"id"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Message != "Budget created." || out.ID == 0 {
			t.Fatalf("unexpected response: %+v", out)
		}
	})

	t.Run("list returns the budget", func(t *testing.T) {
		rec := doJSON(srv, http.MethodGet, "/api/budget?user_id=1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var out struct {
			Budgets []apiBudget `json:"budgets"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(out.Budgets) != 1 {
			t.Fatalf("expected one budget, got %d", len(out.Budgets))
		}
		b := out.Budgets[0]
		if b.Amount != "400.00" || b.YearMonth != "2024-03" || b.CategoryName != "Food" {
			t.Fatalf("unexpected budget: %+v", b)
		}
	})

	t.Run("validation errors read as 422", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPost, "/api/budget", map[string]any{
			"userId":    1,
			"amount":    "not-a-number",
			"yearMonth": "2024/03",
		})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
		}
		var out struct {
			Errors map[string][]string `json:"errors"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		for _, field := range []string{"categoryId", "amount", "yearMonth"} {
			if len(out.Errors[field]) == 0 {
				t.Fatalf("expected error on %s, got %v", field, out.Errors)
			}
		}
	})

	t.Run("update", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPut, "/api/budget", map[string]any{
			"id":         3,
			"userId":     1,
			"categoryId": 2,
			"amount":     "500.00",
			"yearMonth":  "2024-04",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("foreign user cannot touch the budget", func(t *testing.T) {
		register(t, srv, "eve@example.com") // user id 4
		rec := doJSON(srv, http.MethodDelete, "/api/budget", map[string]any{
			"id":     3,
			"userId": 4,
		})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown id reads as 404", func(t *testing.T) {
		rec := doJSON(srv, http.MethodDelete, "/api/budget", map[string]any{
			"id":     999,
			"userId": 1,
		})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(srv, http.MethodDelete, "/api/budget", map[string]any{
			"id":     3,
			"userId": 1,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		list := doJSON(srv, http.MethodGet, "/api/budget?user_id=1", nil)
		if !strings.Contains(list.Body.String(), `"budgets":[]`) {
			t.Fatalf("expected empty budget list, got %s", list.Body.String())
		}
	})
}

func TestPageCacheInvalidation(t *testing.T) {
	srv := newTestServer(t)
	cookie := register(t, srv, "ada@example.com")
	createCategory(t, srv, cookie, "Food")

	// Warm the cache with an empty list, then write and re-read.
	first := doForm(srv, http.MethodGet, "/expenses", nil, cookie)
	if strings.Contains(first.Body.String(), "Groceries") {
		t.Fatal("list should start empty")
	}

	rec := doForm(srv, http.MethodPost, "/expenses", url.Values{
		"name":       {"Groceries"},
		"amount":     {"10"},
		"categoryId": {"2"},
		"date":       {"2024-03-15"},
	}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create expected 303, got %d", rec.Code)
	}

	second := doForm(srv, http.MethodGet, "/expenses", nil, cookie)
	if !strings.Contains(second.Body.String(), "Groceries") {
		t.Fatal("write should invalidate the cached list page")
	}
}
