package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dejure-gateway/internal/config"
	"dejure-gateway/internal/guard"
	"dejure-gateway/internal/handler"
	"dejure-gateway/internal/middleware"
	"dejure-gateway/internal/token"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	Module  *handler.ModuleHandler
	Page    http.Handler
	Health  *handler.HealthHandler
	Docs    *handler.DocsHandler
}

// Gates holds one guard per page area plus what the expiry check needs.
type Gates struct {
	Learner   *guard.Guard
	Mentor    *guard.Guard
	Admin     *guard.Guard
	Tokens    middleware.TokenSource
	Inspector *token.Inspector
}

func New(cfg *config.Config, h Handlers, gates Gates) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)
	proxyTimeout := middleware.ProxyTimeout(cfg.ProxyTimeout, cfg.ProxyIdleTimeout)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.RejectTraversal)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/swagger", h.Docs.SwaggerUI)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(buffered chi.Router) {
			buffered.Use(middleware.Timeout(cfg.RequestTimeout))

			buffered.Post("/auth/login", h.Auth.Login)
			buffered.Post("/auth/logout", h.Auth.Logout)
			buffered.Get("/session", h.Session.Status)
			buffered.Get("/session/permissions/{module}", h.Session.Permissions)
		})

		api.Get("/session/events", h.Session.Events)

		api.With(proxyTimeout, gates.Admin.Handler, middleware.RequirePermission("module")).
			HandleFunc("/admin/modules/{module}/*", h.Module.Forward)
	})

	pageArea := func(prefix string, g *guard.Guard) {
		gated := r.With(
			proxyTimeout,
			middleware.ExpiryRedirect(gates.Inspector, gates.Tokens, guard.LoginPath(g.RequiredRole()), cfg.ExpiryWarningMinutes),
			g.Handler,
		)
		gated.Handle(prefix, h.Page)
		gated.Handle(prefix+"/*", h.Page)
	}

	// Login pages sit inside their area but must stay reachable without a session.
	r.With(proxyTimeout).Handle(guard.AdminLoginPath, h.Page)
	r.With(proxyTimeout).Handle(guard.MentorLoginPath, h.Page)

	pageArea("/learner", gates.Learner)
	pageArea("/mentor", gates.Mentor)
	pageArea("/admin", gates.Admin)

	r.With(proxyTimeout).Handle("/*", h.Page)

	return r
}
