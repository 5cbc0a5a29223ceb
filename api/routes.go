package api

import (
	"net/http"

	"fusionguard/api/handlers"
	"fusionguard/api/routegroups"
	"fusionguard/core/guard"

	"github.com/go-chi/chi/v5"
)

func (s *Server) registerRoutes() {
	s.router.Use(s.recoverMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.securityHeadersMiddleware)

	s.registerObservabilityRoutes()

	s.router.Group(func(app chi.Router) {
		app.Use(s.browserMiddleware)
		app.Use(s.guardMiddleware)

		apiRouter := chi.NewRouter()
		apiRouter.Use(s.jsonMiddleware)
		routegroups.RegisterAuth(apiRouter, routegroups.Guards{LoginLimit: s.rateLimitMiddleware}, s.auth)
		routegroups.RegisterTelemetry(apiRouter, s.telemetry)
		routegroups.RegisterAdmin(apiRouter, routegroups.AdminHandlers{
			Identities: s.identities,
			System:     s.system,
			Settings:   s.settings,
		})
		apiRouter.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		})
		app.Mount("/api", apiRouter)

		s.registerPageRoutes(app)
	})
}

func (s *Server) registerPageRoutes(r chi.Router) {
	for _, p := range handlers.PagePaths() {
		r.MethodFunc("GET", p, s.pages.Render)
	}
	r.MethodFunc("GET", "/user", s.pages.AreaRoot(guard.UserHomePath))
	r.MethodFunc("GET", "/admin", s.pages.AreaRoot(guard.AdminHomePath))
	r.NotFound(s.pages.NotFound)
}
