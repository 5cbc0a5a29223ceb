package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"fusionguard/config"
	"fusionguard/core/appbootstrap"
	"fusionguard/core/auth"
	"fusionguard/core/rbac"
	"fusionguard/core/utils"
)

func newRuntime(t *testing.T) *appbootstrap.Runtime {
	t.Helper()
	cfg := &config.AppConfig{
		ListenAddr:        "127.0.0.1:0",
		AppEnv:            "dev",
		Pepper:            "scenario-pepper",
		BrowserSessionTTL: time.Hour,
		Storage: config.StorageConfig{
			Backend:  "sql",
			DBDriver: "sqlite",
			DBPath:   filepath.Join(t.TempDir(), "fusionguard.db"),
		},
		Telemetry: config.TelemetryConfig{Interval: 20 * time.Millisecond, AlertProbability: 0.05},
		Janitor:   config.JanitorConfig{Enabled: true, Spec: "@every 1h"},
		Security:  config.SecurityConfig{LoginAttemptsPerMinute: 50},
	}
	rt, err := appbootstrap.InitRuntime(context.Background(), cfg, utils.NewNopLogger())
	if err != nil {
		t.Fatalf("init runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, rt *appbootstrap.Runtime) *client {
	t.Helper()
	srv := httptest.NewServer(rt.Server.Handler())
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("jar: %v", err)
	}
	return &client{t: t, base: srv.URL, http: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (c *client) get(path string) *http.Response {
	c.t.Helper()
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	resp.Body.Close()
	return resp
}

func (c *client) login(cred auth.Credentials) (int, map[string]any) {
	c.t.Helper()
	raw, _ := json.Marshal(cred)
	resp, err := c.http.Post(c.base+"/api/auth/login", "application/json", bytes.NewReader(raw))
	if err != nil {
		c.t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (c *client) role() rbac.Role {
	c.t.Helper()
	resp, err := c.http.Get(c.base + "/api/auth/session")
	if err != nil {
		c.t.Fatalf("session: %v", err)
	}
	defer resp.Body.Close()
	var view auth.SessionView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		c.t.Fatalf("decode session: %v", err)
	}
	return view.Role
}

func TestSeedAdminLandsOnAdminHome(t *testing.T) {
	c := newClient(t, newRuntime(t))
	code, body := c.login(auth.Credentials{Email: "admin@fusionguard.ai", Password: "admin123"})
	if code != http.StatusOK {
		t.Fatalf("login expected 200, got %d %v", code, body)
	}
	if body["role"] != "admin" || body["redirect"] != "/admin/dashboard" {
		t.Fatalf("unexpected login result: %v", body)
	}
	if c.role() != rbac.RoleAdmin {
		t.Fatalf("session must hold admin")
	}
	if resp := c.get("/admin/dashboard"); resp.StatusCode != http.StatusOK {
		t.Fatalf("admin dashboard expected 200, got %d", resp.StatusCode)
	}
}

func TestSeedOperatorLandsOnUserHome(t *testing.T) {
	c := newClient(t, newRuntime(t))
	code, body := c.login(auth.Credentials{Email: "user@fusionguard.ai", Password: "user123"})
	if code != http.StatusOK || body["role"] != "user" || body["redirect"] != "/user/dashboard" {
		t.Fatalf("unexpected login result: %d %v", code, body)
	}
	if c.role() != rbac.RoleUser {
		t.Fatalf("session must hold user")
	}
}

func TestUnknownEmailIsDenied(t *testing.T) {
	c := newClient(t, newRuntime(t))
	code, body := c.login(auth.Credentials{Email: "nobody@fusionguard.ai", Password: "whatever"})
	if code != http.StatusUnauthorized || body["error"] != "Access Denied: Invalid parameters." {
		t.Fatalf("unexpected response: %d %v", code, body)
	}
	if c.role() != rbac.RoleGuest {
		t.Fatalf("role must remain guest")
	}
}

func TestGuestReturnsToRememberedPathAfterLogin(t *testing.T) {
	c := newClient(t, newRuntime(t))
	resp := c.get("/admin/settings")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	loc, err := resp.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.Path != "/login" || loc.Query().Get("next") != "/admin/settings" {
		t.Fatalf("unexpected login redirect: %s", loc)
	}
	code, body := c.login(auth.Credentials{Email: "admin@fusionguard.ai", Password: "admin123", Next: loc.Query().Get("next")})
	if code != http.StatusOK || body["redirect"] != "/admin/settings" {
		t.Fatalf("unexpected login result: %d %v", code, body)
	}
	if resp := c.get("/admin/settings"); resp.StatusCode != http.StatusOK {
		t.Fatalf("admin settings expected 200 after login, got %d", resp.StatusCode)
	}
}

func TestBrowsersHoldSeparateSessions(t *testing.T) {
	rt := newRuntime(t)
	admin := newClient(t, rt)
	admin.login(auth.Credentials{Email: "admin@fusionguard.ai", Password: "admin123"})

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("jar: %v", err)
	}
	other := &client{t: t, base: admin.base, http: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
	if other.role() != rbac.RoleGuest {
		t.Fatalf("a fresh browser must start as guest")
	}
	if admin.role() != rbac.RoleAdmin {
		t.Fatalf("admin browser must keep its role")
	}
}

func TestRuntimeBackgroundLifecycle(t *testing.T) {
	rt := newRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rt.StartBackground(ctx)
	if err := rt.StopBackground(ctx); err != nil {
		t.Fatalf("stop background: %v", err)
	}
}
