package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmakarov/flowtrack-backend/internal/config"
)

func corsRequest(cfg config.CORSConfig, method, origin string, next http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/items", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	CORS(cfg)(next).ServeHTTP(rec, req)
	return rec
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins:   "https://app.flowtrack.dev",
		AllowedMethods:   "GET,POST,OPTIONS",
		AllowedHeaders:   "Authorization,Content-Type",
		AllowCredentials: true,
		MaxAge:           86400,
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the handler")
	})

	rec := corsRequest(cfg, http.MethodOptions, "https://app.flowtrack.dev", next)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	wantHeaders := map[string]string{
		"Access-Control-Allow-Origin":      "https://app.flowtrack.dev",
		"Access-Control-Allow-Methods":     "GET,POST,OPTIONS",
		"Access-Control-Allow-Headers":     "Authorization,Content-Type",
		"Access-Control-Allow-Credentials": "true",
		"Access-Control-Max-Age":           "86400",
	}
	for name, want := range wantHeaders {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestCORS_ListedOrigin(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins:   "https://app.flowtrack.dev,https://staging.flowtrack.dev",
		AllowedMethods:   "GET,POST",
		AllowedHeaders:   "Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}

	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	rec := corsRequest(cfg, http.MethodGet, "https://staging.flowtrack.dev", next)

	if !reached {
		t.Error("handler was not invoked")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://staging.flowtrack.dev" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, "true")
	}
}

func TestCORS_UnlistedOrigin(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins:   "https://app.flowtrack.dev",
		AllowedMethods:   "GET,POST",
		AllowedHeaders:   "Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}

	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	rec := corsRequest(cfg, http.MethodGet, "https://evil.example.com", next)

	// The request still proceeds; it just gets no CORS grant.
	if !reached {
		t.Error("handler was not invoked")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Access-Control-Allow-Origin %q", got)
	}
}

func TestCORS_WildcardEchoesOrigin(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins:   "*",
		AllowedMethods:   "GET,POST",
		AllowedHeaders:   "Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := corsRequest(cfg, http.MethodGet, "https://anywhere.example.net", next)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.example.net" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("credentials header must be absent when AllowCredentials is false, got %q", got)
	}
}
