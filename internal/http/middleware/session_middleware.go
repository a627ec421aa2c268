package middleware

import (
	"net/http"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/http/response"
	"github.com/anivault/anivault/internal/i18n"
	"github.com/anivault/anivault/internal/session"
)

// RequireSession rejects requests while the host has no signed-in user.
func RequireSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.Snapshot().Authenticated() {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", i18n.SessionExpired, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCapability lets the request through only when allowed accepts the
// signed-in user.
func RequireCapability(store *session.Store, name string, allowed func(*domain.User) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := store.Snapshot()
			if !st.Authenticated() {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", i18n.SessionExpired, nil)
				return
			}
			if !allowed(st.User) {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", i18n.Forbidden, map[string]string{"required": name})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireCatalogEditor(store *session.Store) func(http.Handler) http.Handler {
	return RequireCapability(store, "catalog:write", (*domain.User).CanEditCatalog)
}

func RequireRoleManager(store *session.Store) func(http.Handler) http.Handler {
	return RequireCapability(store, "users:roles", (*domain.User).CanManageRoles)
}
