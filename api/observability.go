package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readinessTimeout = time.Second

var bootedAt = time.Now().UTC()

type healthReport struct {
	OK        bool            `json:"ok"`
	Env       string          `json:"app_env,omitempty"`
	UptimeSec int64           `json:"uptime_sec"`
	Workers   map[string]bool `json:"workers,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (s *Server) registerObservabilityRoutes() {
	s.router.MethodFunc(http.MethodGet, "/healthz", s.healthz)
	s.router.MethodFunc(http.MethodGet, "/readyz", s.readyz)
	if !s.cfg.Observability.MetricsEnabled {
		return
	}
	exposition := promhttp.HandlerFor(s.metricsRegistry(), promhttp.HandlerOpts{})
	s.router.Method(http.MethodGet, "/metrics", s.metricsGate(exposition))
}

// workerSources lists the workers reported by readiness and metrics.
func (s *Server) workerSources() map[string]statsSource {
	out := map[string]statsSource{"telemetry_feed": s.ambient}
	if s.janitor != nil {
		out["kv_janitor"] = s.janitor
	}
	return out
}

func (s *Server) metricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "fusionguard_uptime_seconds",
			Help: "Seconds since the control service booted.",
		}, func() float64 { return time.Since(bootedAt).Seconds() }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "fusionguard_telemetry_streams",
			Help: "Dashboard websocket streams currently connected.",
		}, func() float64 { return float64(s.telemetry.ActiveStreams()) }),
		newWorkersMetricsCollector(s.workerSources()),
	)
	return reg
}

// metricsGate checks the bearer token. With no token configured the
// exposition is served in dev only.
func (s *Server) metricsGate(next http.Handler) http.Handler {
	token := strings.TrimSpace(s.cfg.Observability.MetricsToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			if !s.cfg.IsDev() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, http.StatusOK, healthReport{
		OK:        true,
		Env:       s.cfg.AppEnv,
		UptimeSec: int64(time.Since(bootedAt).Seconds()),
	})
}

// readyz pings the kv backend and lists which workers are running. A stopped
// worker does not fail readiness; the backend does.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	report := healthReport{UptimeSec: int64(time.Since(bootedAt).Seconds()), Workers: map[string]bool{}}
	for name, src := range s.workerSources() {
		report.Workers[name] = src.StatsSnapshot().Running
	}
	if s.backend == nil {
		report.Error = "storage not configured"
		writeProbe(w, http.StatusServiceUnavailable, report)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if err := s.backend.Ping(ctx); err != nil {
		s.logger.Errorf("readyz: storage ping: %v", err)
		report.Error = "storage unavailable"
		writeProbe(w, http.StatusServiceUnavailable, report)
		return
	}
	report.OK = true
	writeProbe(w, http.StatusOK, report)
}

func writeProbe(w http.ResponseWriter, status int, report healthReport) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
