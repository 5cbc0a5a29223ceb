package routegroups

import (
	"fusionguard/api/handlers"

	"github.com/go-chi/chi/v5"
)

func RegisterTelemetry(apiRouter chi.Router, h *handlers.TelemetryHandler) {
	apiRouter.Route("/telemetry", func(r chi.Router) {
		r.MethodFunc("GET", "/snapshot", h.Snapshot)
		r.MethodFunc("GET", "/events", h.Events)
		r.MethodFunc("GET", "/stream", h.Stream)
	})
}
