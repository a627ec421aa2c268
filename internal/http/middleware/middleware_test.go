package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/identity"
	"github.com/anivault/anivault/internal/observability"
	"github.com/anivault/anivault/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func signedInStore(role domain.Role) *session.Store {
	s := session.NewStore()
	id := uuid.New()
	s.SetSession(&identity.Session{UserID: id})
	s.SetUser(&domain.User{ID: id, Role: role})
	return s
}

func TestRequireSession(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireSession(session.NewStore())(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	RequireSession(signedInStore(domain.RoleUser))(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestRequireCapabilityByRole(t *testing.T) {
	cases := []struct {
		role domain.Role
		mw   func(*session.Store) func(http.Handler) http.Handler
		want int
	}{
		{domain.RoleModerator, RequireCatalogEditor, http.StatusNoContent},
		{domain.RoleVIP, RequireCatalogEditor, http.StatusForbidden},
		{domain.RoleAdmin, RequireRoleManager, http.StatusNoContent},
		{domain.RoleModerator, RequireRoleManager, http.StatusForbidden},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		tc.mw(signedInStore(tc.role))(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		if rr.Code != tc.want {
			t.Fatalf("role %s: got %d want %d", tc.role, rr.Code, tc.want)
		}
	}
}

func TestSameOriginGuard(t *testing.T) {
	guard := SameOriginGuard([]string{"http://127.0.0.1:8787/"})(okHandler)
	cases := []struct {
		name        string
		method      string
		origin      string
		contentType string
		body        string
		want        int
	}{
		{name: "get passes", method: http.MethodGet, origin: "https://evil.example", want: http.StatusNoContent},
		{name: "foreign origin", method: http.MethodPost, origin: "https://evil.example", contentType: "application/json", body: "{}", want: http.StatusForbidden},
		{name: "form post", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", body: "a=b", want: http.StatusUnsupportedMediaType},
		{name: "json from allowed origin", method: http.MethodPost, origin: "http://127.0.0.1:8787", contentType: "application/json; charset=utf-8", body: "{}", want: http.StatusNoContent},
		{name: "empty post", method: http.MethodPost, want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/v1/auth/logout", strings.NewReader(tc.body))
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			rr := httptest.NewRecorder()
			guard.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("got %d want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	RequestID(SecurityHeaders(okHandler)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := observability.NewHTTPMetrics()
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/v1/catalog/{id}", okHandler)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/catalog/abc", nil))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), `route="/api/v1/catalog/{id}"`) {
		t.Fatalf("expected route pattern label, got %s", rr.Body.String())
	}
}
