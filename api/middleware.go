package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"fusionguard/api/handlers"
	"fusionguard/core/auth"
	"fusionguard/core/guard"
	"fusionguard/core/kv"
	"fusionguard/core/rbac"
	"fusionguard/core/session"
	"fusionguard/core/utils"

	"github.com/gofrs/uuid/v5"
)

const (
	loginLimiterTTL    = 10 * time.Minute
	loginLimiterSweep  = time.Minute
	loginLimiterMaxKey = 10000
	loginBodyLimit     = 16 << 10
)

// requestLimiter counts attempts per key in fixed windows. Keys idle longer
// than loginLimiterTTL are swept, and the table never grows past
// loginLimiterMaxKey entries.
type requestLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*attemptWindow
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type attemptWindow struct {
	opened time.Time
	used   int
	seen   time.Time
}

func newLimiter(limit int, window time.Duration) *requestLimiter {
	return &requestLimiter{
		buckets: make(map[string]*attemptWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

func (l *requestLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) >= loginLimiterSweep {
		l.sweep(now)
		l.lastSweep = now
	}
	w := l.buckets[key]
	if w == nil || now.Sub(w.opened) >= l.window {
		w = &attemptWindow{opened: now}
		l.buckets[key] = w
	}
	w.seen = now
	if w.used >= l.limit {
		return false
	}
	w.used++
	return true
}

func (l *requestLimiter) sweep(now time.Time) {
	for key, w := range l.buckets {
		if now.Sub(w.seen) > loginLimiterTTL {
			delete(l.buckets, key)
		}
	}
	for len(l.buckets) > loginLimiterMaxKey {
		var stalest string
		for key, w := range l.buckets {
			if stalest == "" || w.seen.Before(l.buckets[stalest].seen) {
				stalest = key
			}
		}
		delete(l.buckets, stalest)
	}
}

// recoverMiddleware turns a handler panic into a 500. Aborted handlers keep
// unwinding so net/http can drop the connection.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			switch {
			case rec == nil:
				return
			case rec == http.ErrAbortHandler:
				panic(rec)
			}
			s.logger.Errorf("handler panic method=%s path=%s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
			http.Error(w, "internal error", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

var baseSecurityHeaders = [][2]string{
	{"Content-Security-Policy", "default-src 'self'; connect-src 'self' ws: wss:; img-src 'self' data:; object-src 'none'; frame-ancestors 'self'"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "SAMEORIGIN"},
	{"Referrer-Policy", "no-referrer"},
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, pair := range baseSecurityHeaders {
			h.Set(pair[0], pair[1])
		}
		if s.cfg.TLSEnabled {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Type", "application/json")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware writes one access line per request, tagged with the
// role the browser held when the request arrived.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK, role: "-"}
		next.ServeHTTP(rec, r)
		s.logger.Printf("access method=%s path=%s role=%s status=%d bytes=%d took=%s",
			r.Method, r.URL.Path, rec.role, rec.status, rec.size, time.Since(began))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
	role   rbac.Role
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func recorderFrom(w http.ResponseWriter) *statusRecorder {
	rec, _ := w.(*statusRecorder)
	return rec
}

// browserMiddleware identifies the browser by an opaque cookie and attaches
// its session store to the request.
func (s *Server) browserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(handlers.BrowserCookieName); err == nil {
			if parsed, err := uuid.FromString(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			fresh, err := uuid.NewV4()
			if err != nil {
				s.logger.Errorf("browser id: %v", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			id = fresh.String()
		}
		http.SetCookie(w, &http.Cookie{
			Name:     handlers.BrowserCookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(s.cfg.BrowserSessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   s.cfg.TLSEnabled,
			SameSite: http.SameSiteLaxMode,
		})
		sess, err := session.Open(r.Context(), s.backend.Scope(kv.BrowserScope(id)), s.logger)
		if err != nil {
			s.logger.Errorf("session open: %v", err)
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}
		if rec := recorderFrom(w); rec != nil {
			rec.role = sess.Current().Role
		}
		next.ServeHTTP(w, r.WithContext(handlers.WithSession(r.Context(), sess)))
	})
}

// guardMiddleware decides access before any handler runs. Views are
// redirected, API calls get 401 or 403.
func (s *Server) guardMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rule, guarded := guard.Match(r.URL.Path)
		if !guarded {
			next.ServeHTTP(w, r)
			return
		}
		current := session.Session{Role: rbac.RoleGuest}
		if sess := handlers.SessionFrom(r.Context()); sess != nil {
			current = sess.Current()
		}
		allowed := s.policy.RolesWith(rule.Permission)
		decision := guard.Check(current, allowed, r.URL.RequestURI())
		if decision.Outcome == guard.Render {
			next.ServeHTTP(w, r)
			return
		}
		if rule.API {
			s.logger.Printf("PERM fail %s %s role=%s need=%s", r.Method, r.URL.Path, current.Role, rule.Permission)
			status, msg := http.StatusForbidden, "forbidden"
			if decision.Outcome == guard.RedirectLogin {
				status, msg = http.StatusUnauthorized, "unauthorized"
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
			return
		}
		s.logger.Printf("GUARD redirect %s role=%s from=%s to=%s", decision.Outcome, current.Role, decision.From, decision.Location)
		http.Redirect(w, r, decision.Location, http.StatusFound)
	})
}

func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, loginBodyLimit))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var cred auth.Credentials
		_ = json.Unmarshal(body, &cred)
		email := utils.NormalizeEmail(cred.Email)
		if !s.limiter.allow(strings.ToLower(s.clientIP(r))) {
			http.Error(w, "too many attempts", http.StatusTooManyRequests)
			return
		}
		if email != "" && !s.limiter.allow("email|"+email) {
			http.Error(w, "too many attempts", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// clientIP is the peer address, or the first forwarded hop when the peer is
// a trusted proxy.
func (s *Server) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	peer = strings.TrimSpace(peer)
	if s == nil || s.cfg == nil || !isTrustedProxy(peer, s.cfg.Security.TrustedProxies) {
		return peer
	}
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return peer
}

func isTrustedProxy(ip string, trusted []string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, entry := range trusted {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
		case strings.Contains(entry, "/"):
			if prefix, err := netip.ParsePrefix(entry); err == nil && prefix.Contains(addr) {
				return true
			}
		default:
			if other, err := netip.ParseAddr(entry); err == nil && other.Unmap() == addr {
				return true
			}
		}
	}
	return false
}
