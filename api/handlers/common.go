package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"fusionguard/core/session"
)

const BrowserCookieName = "fusionguard_browser"

type ctxKey int

const sessionCtxKey ctxKey = iota

// WithSession attaches the browser's session store to ctx.
func WithSession(ctx context.Context, s *session.Store) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

func SessionFrom(ctx context.Context) *session.Store {
	s, _ := ctx.Value(sessionCtxKey).(*session.Store)
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	return dec.Decode(dst)
}
