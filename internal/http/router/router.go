package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/anivault/anivault/internal/health"
	"github.com/anivault/anivault/internal/http/handler"
	"github.com/anivault/anivault/internal/http/middleware"
	"github.com/anivault/anivault/internal/http/response"
	"github.com/anivault/anivault/internal/observability"
	"github.com/anivault/anivault/internal/session"
)

type Dependencies struct {
	SessionHandler *handler.SessionHandler
	AuthHandler    *handler.AuthHandler
	ProfileHandler *handler.ProfileHandler
	CatalogHandler *handler.CatalogHandler
	AdminHandler   *handler.AdminHandler
	Store          *session.Store
	Readiness      *health.ProbeRunner
	Metrics        *observability.HTTPMetrics
	AllowedOrigins []string
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.Metrics(dep.Metrics))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.SameOriginGuard(dep.AllowedOrigins))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})
	r.Method(http.MethodGet, "/metrics", dep.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", dep.SessionHandler.Get)
		r.Get("/notifications", dep.SessionHandler.Notifications)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/register", dep.AuthHandler.Register)
			r.Post("/logout", dep.AuthHandler.Logout)
		})

		r.With(middleware.RequireSession(dep.Store)).Patch("/profile", dep.ProfileHandler.Update)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", dep.CatalogHandler.List)
			r.Get("/stats", dep.CatalogHandler.Stats)
			r.Get("/{id}", dep.CatalogHandler.Get)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireSession(dep.Store))
			r.Route("/catalog", func(r chi.Router) {
				r.Use(middleware.RequireCatalogEditor(dep.Store))
				r.Post("/", dep.CatalogHandler.Create)
				r.Put("/{id}", dep.CatalogHandler.Update)
				r.Delete("/{id}", dep.CatalogHandler.Delete)
			})
			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireRoleManager(dep.Store))
				r.Get("/", dep.AdminHandler.ListUsers)
				r.Patch("/{id}/role", dep.AdminHandler.SetUserRole)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
