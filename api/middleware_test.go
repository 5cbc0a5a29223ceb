package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLimiterRefillsAfterWindow(t *testing.T) {
	l := newLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	if !l.allow("k") || !l.allow("k") {
		t.Fatalf("first two attempts must pass")
	}
	if l.allow("k") {
		t.Fatalf("third attempt must be throttled")
	}
	now = now.Add(time.Minute)
	if !l.allow("k") {
		t.Fatalf("bucket must refill after the window")
	}
}

func TestLimiterCleanupDropsIdleBuckets(t *testing.T) {
	l := newLimiter(1, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.allow("a")
	now = now.Add(loginLimiterTTL + 2*time.Minute)
	l.allow("b")
	if _, ok := l.buckets["a"]; ok {
		t.Fatalf("idle bucket must be removed")
	}
}

func TestLoginRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.LoginAttemptsPerMinute = 2
	s := newTestServer(t, cfg)
	b := &browser{t: t, h: s.Handler()}
	b.login("ghost@fusionguard.ai", "wrong-pass")
	b.login("ghost@fusionguard.ai", "wrong-pass")
	if rr := b.login("ghost@fusionguard.ai", "wrong-pass"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestClientIPHonoursTrustedProxies(t *testing.T) {
	cfg := testConfig()
	cfg.Security.TrustedProxies = []string{"10.0.0.0/8"}
	s := &Server{cfg: cfg}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.2.3")
	if ip := s.clientIP(req); ip != "203.0.113.9" {
		t.Fatalf("expected forwarded ip, got %s", ip)
	}
	req.RemoteAddr = "198.51.100.4:5555"
	if ip := s.clientIP(req); ip != "198.51.100.4" {
		t.Fatalf("untrusted peer must not be able to spoof, got %s", ip)
	}
}

func TestSecurityHeadersAndRecover(t *testing.T) {
	s := newTestServer(t, testConfig())
	h := s.recoverMiddleware(s.securityHeadersMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rr.Code)
	}
	if rr.Header().Get("X-Frame-Options") != "SAMEORIGIN" {
		t.Fatalf("security headers missing")
	}
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t, testConfig())
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz expected 200, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if rr.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("readyz expected ok, got %d %v", rr.Code, body)
	}
	if err := s.backend.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("closed backend must not be ready, got %d", rr.Code)
	}
}

func TestMetricsRequireToken(t *testing.T) {
	cfg := testConfig()
	cfg.Observability.MetricsEnabled = true
	cfg.Observability.MetricsToken = "secret"
	s := newTestServer(t, cfg)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "fusionguard_worker_ticks_total") || !strings.Contains(body, "fusionguard_telemetry_streams") {
		t.Fatalf("worker metrics missing from exposition")
	}
}
