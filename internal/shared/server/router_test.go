package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resume-builder/internal/artifacts"
	"resume-builder/internal/convert"
	"resume-builder/internal/dialog"
	"resume-builder/internal/imports"
	"resume-builder/internal/llm"
	"resume-builder/internal/resumes"
	"resume-builder/internal/sessions"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/kv"
	localstore "resume-builder/internal/shared/storage/object/local"
)

func newTestRouter(t *testing.T, clientKey string) http.Handler {
	t.Helper()

	reg, err := dialog.Load()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	store := kv.NewMemoryStore()
	client := llm.Client(llm.PlaceholderClient{})

	sessionSvc := sessions.NewService(sessions.NewRepo(store, time.Hour), reg, client)
	gen := artifacts.NewGenerator(client, reg, store, time.Minute, 1000)

	tokens, err := resumes.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	resumeSvc := resumes.NewService(resumes.NewMemoryRepo(), sessionSvc, convert.Placeholder{}, store, tokens, time.Minute)
	importSvc := imports.NewService(sessionSvc, client, localstore.New(t.TempDir()))

	return NewRouter(RouterDeps{
		Config: config.Config{
			Env:             "dev",
			CORSAllowOrigin: []string{"http://localhost:5173"},
			ClientAPIKey:    clientKey,
		},
		SessionHandler: sessions.NewHandler(sessionSvc, gen),
		ResumeHandler:  resumes.NewHandler(resumeSvc),
		ImportHandler:  imports.NewHandler(importSvc),
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("body = %s, want ok:true", w.Body.String())
	}
}

func TestClientKeyGate(t *testing.T) {
	r := newTestRouter(t, "sekret")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Client-Key", "sekret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("with key: status = %d, want %d", w.Code, http.StatusOK)
	}

	// Resume view is token-gated, not key-gated; the invalid token should
	// surface 403 from the handler rather than 401 from the middleware.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/resumes/abc?token=bad", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("resume view: status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestStartSessionWithoutProvider(t *testing.T) {
	r := newTestRouter(t, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(w.Body.String(), "GENERATION_UNAVAILABLE") {
		t.Fatalf("body = %s, want GENERATION_UNAVAILABLE", w.Body.String())
	}
}

func TestAddr(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ":8080"},
		{"9090", ":9090"},
		{":7000", ":7000"},
	}
	for _, tc := range cases {
		if got := Addr(tc.in); got != tc.want {
			t.Fatalf("Addr(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
