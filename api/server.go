package api

import (
	"context"
	"net/http"
	"time"

	"fusionguard/api/handlers"
	"fusionguard/config"
	"fusionguard/core/kv"
	"fusionguard/core/rbac"
	"fusionguard/core/store"
	"fusionguard/core/telemetry"
	"fusionguard/core/utils"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	cfg        *config.AppConfig
	router     chi.Router
	httpServer *http.Server
	logger     *utils.Logger
	backend    kv.Backend
	policy     *rbac.Policy
	ambient    *telemetry.Feed
	janitor    *store.Janitor
	limiter    *requestLimiter

	auth       *handlers.AuthHandler
	pages      *handlers.PagesHandler
	identities *handlers.IdentitiesHandler
	system     *handlers.SystemHandler
	settings   *handlers.SettingsHandler
	telemetry  *handlers.TelemetryHandler
}

func NewServer(cfg *config.AppConfig, logger *utils.Logger, deps ServerDeps) *Server {
	policy := deps.Policy
	if policy == nil {
		policy = rbac.MustPolicy(rbac.DefaultRoles())
	}
	newFeed := deps.NewFeed
	if newFeed == nil {
		var mode telemetry.ModeSource
		if deps.System != nil {
			mode = deps.System
		}
		newFeed = func() *telemetry.Feed {
			return telemetry.NewFeed(telemetry.FeedConfig{
				Interval:         cfg.Telemetry.Interval,
				AlertProbability: cfg.Telemetry.AlertProbability,
				Mode:             mode,
				Logger:           logger,
			})
		}
	}
	ambient := deps.Ambient
	if ambient == nil {
		ambient = newFeed()
	}
	attempts := cfg.Security.LoginAttemptsPerMinute
	if attempts <= 0 {
		attempts = 5
	}
	s := &Server{
		cfg:        cfg,
		router:     chi.NewRouter(),
		logger:     logger,
		backend:    deps.Backend,
		policy:     policy,
		ambient:    ambient,
		janitor:    deps.Janitor,
		limiter:    newLimiter(attempts, time.Minute),
		auth:       handlers.NewAuthHandler(deps.Identities, policy, logger),
		pages:      handlers.NewPagesHandler(),
		identities: handlers.NewIdentitiesHandler(deps.Identities, logger),
		system:     handlers.NewSystemHandler(deps.System, logger),
		settings:   handlers.NewSettingsHandler(deps.Settings, logger),
		telemetry:  handlers.NewTelemetryHandler(ambient, newFeed, logger),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Config() *config.AppConfig {
	if s == nil {
		return nil
	}
	return s.cfg
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// newHTTPServer ties open telemetry streams to the server's shutdown.
func (s *Server) newHTTPServer() *http.Server {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	srv.RegisterOnShutdown(s.telemetry.CloseStreams)
	return srv
}

func (s *Server) Start() error {
	s.httpServer = s.newHTTPServer()
	s.logger.Printf("listening on %s", s.cfg.ListenAddr)
	if s.cfg.TLSEnabled {
		return s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		s.telemetry.CloseStreams()
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
