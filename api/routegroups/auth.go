package routegroups

import (
	"fusionguard/api/handlers"

	"github.com/go-chi/chi/v5"
)

func RegisterAuth(apiRouter chi.Router, g Guards, h *handlers.AuthHandler) {
	apiRouter.Route("/auth", func(r chi.Router) {
		r.MethodFunc("POST", "/login", g.Limited(h.Login))
		r.MethodFunc("POST", "/logout", h.Logout)
		r.MethodFunc("GET", "/session", h.Session)
	})
}
