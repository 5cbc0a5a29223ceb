package routegroups

import (
	"fusionguard/api/handlers"

	"github.com/go-chi/chi/v5"
)

type AdminHandlers struct {
	Identities *handlers.IdentitiesHandler
	System     *handlers.SystemHandler
	Settings   *handlers.SettingsHandler
}

func RegisterAdmin(apiRouter chi.Router, h AdminHandlers) {
	apiRouter.Route("/admin", func(admin chi.Router) {
		admin.MethodFunc("GET", "/identities", h.Identities.List)
		admin.MethodFunc("POST", "/identities", h.Identities.Create)
		admin.MethodFunc("DELETE", "/identities/{id}", h.Identities.Delete)
		admin.MethodFunc("POST", "/identities/{id}/toggle", h.Identities.Toggle)
		admin.MethodFunc("GET", "/system/mode", h.System.GetMode)
		admin.MethodFunc("PUT", "/system/mode", h.System.SetMode)
		admin.MethodFunc("GET", "/settings", h.Settings.Get)
		admin.MethodFunc("PUT", "/settings", h.Settings.Update)
		admin.MethodFunc("POST", "/settings/reset", h.Settings.Reset)
	})
}
