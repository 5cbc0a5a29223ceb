// Package kv defines the small key/value port used for per-browser and
// global state.
package kv

import (
	"context"
	"errors"
	"strings"
)

const (
	GlobalScope   = "global"
	browserPrefix = "browser:"
)

var ErrClosed = errors.New("kv: backend closed")

// Storage is a single scope of string values. Touch marks an existing key as
// used now without changing its value; idle expiry counts from the latest
// Set or Touch. Touching a missing key is a no-op.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Touch(ctx context.Context, key string) error
	Remove(ctx context.Context, key string) error
}

type Backend interface {
	Scope(name string) Storage
	Ping(ctx context.Context) error
	Close() error
}

func BrowserScope(id string) string {
	return browserPrefix + strings.TrimSpace(id)
}

func IsBrowserScope(scope string) bool {
	return strings.HasPrefix(scope, browserPrefix)
}

func BrowserPrefix() string { return browserPrefix }
