package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/health/live":               "/health/live",
		"/api/v1/accounts":           "/api/v1/accounts",
		"/api/v1/accounts/status":    "/api/v1/accounts/status",
		"/api/v1/accounts/42":        "/api/v1/accounts/{id}",
		"/api/v1/accounts/42/status": "/api/v1/accounts/{id}/status",
		"/api/v1/accounts/42/other":  "/api/v1/accounts/{id}/*",
		"/api/v1/roles":              "/api/v1/roles",
		"/unknown":                   "unmatched",
		"/wp-login.php":              "unmatched",
		"/api/v1/accounts/":          "unmatched",
	}
	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q) = %q, ожидался %q", in, got, want)
		}
	}
}

func TestRoutePattern_Chi(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			seen = routePattern(req)
		})
	})
	r.Get("/api/v1/accounts/{id}/status", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/abc/status", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("статус = %d", rec.Code)
	}
	if seen != "/api/v1/accounts/{id}/status" {
		t.Errorf("routePattern = %q", seen)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("oops"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req = req.WithContext(WithClaims(req.Context(), &AuthClaims{Subject: "s", PreferredUsername: "admin"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"level=ERROR", "status=502", "bytes=4", "actor=admin", "path=/api/v1/accounts"} {
		if !strings.Contains(out, want) {
			t.Errorf("в логе нет %q: %s", want, out)
		}
	}
}

func TestMetricsMiddleware_PassesThrough(t *testing.T) {
	h := MetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts/status", nil))
	if rec.Code != http.StatusCreated {
		t.Errorf("статус = %d", rec.Code)
	}
}
