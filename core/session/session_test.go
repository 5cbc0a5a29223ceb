package session

import (
	"context"
	"errors"
	"testing"

	"fusionguard/core/kv"
	"fusionguard/core/rbac"
	"fusionguard/core/utils"
)

type failingStorage struct {
	kv.Storage
	err error
}

func (f failingStorage) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingStorage) Set(context.Context, string, string) error         { return f.err }
func (f failingStorage) Touch(context.Context, string) error               { return f.err }
func (f failingStorage) Remove(context.Context, string) error              { return f.err }

func openFresh(t *testing.T) (*Store, kv.Storage) {
	t.Helper()
	storage := kv.NewMemoryBackend().Scope(kv.BrowserScope("t"))
	s, err := Open(context.Background(), storage, utils.NewNopLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, storage
}

func TestOpenDefaultsToGuest(t *testing.T) {
	s, _ := openFresh(t)
	cur := s.Current()
	if cur.Role != rbac.RoleGuest || cur.IsAuthenticated {
		t.Fatalf("unexpected initial session: %+v", cur)
	}
}

func TestLoginThenRead(t *testing.T) {
	for _, role := range []rbac.Role{rbac.RoleUser, rbac.RoleAdmin} {
		s, storage := openFresh(t)
		if err := s.Login(context.Background(), role); err != nil {
			t.Fatalf("login %s: %v", role, err)
		}
		cur := s.Current()
		if cur.Role != role || !cur.IsAuthenticated {
			t.Fatalf("unexpected session after login %s: %+v", role, cur)
		}
		v, ok, _ := storage.Get(context.Background(), RoleKey)
		if !ok || v != string(role) {
			t.Fatalf("role not persisted: %q %v", v, ok)
		}
	}
}

func TestLoginRejectsGuestAndGarbage(t *testing.T) {
	s, storage := openFresh(t)
	for _, role := range []rbac.Role{rbac.RoleGuest, "root", ""} {
		if err := s.Login(context.Background(), role); !errors.Is(err, ErrInvalidRole) {
			t.Fatalf("expected ErrInvalidRole for %q, got %v", role, err)
		}
	}
	if s.Current().IsAuthenticated {
		t.Fatalf("rejected login must not change state")
	}
	if _, ok, _ := storage.Get(context.Background(), RoleKey); ok {
		t.Fatalf("rejected login must not persist")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	for _, start := range []rbac.Role{rbac.RoleGuest, rbac.RoleUser, rbac.RoleAdmin} {
		s, storage := openFresh(t)
		if start != rbac.RoleGuest {
			_ = s.Login(context.Background(), start)
		}
		if err := s.Logout(context.Background()); err != nil {
			t.Fatalf("logout: %v", err)
		}
		first := s.Current()
		if err := s.Logout(context.Background()); err != nil {
			t.Fatalf("second logout: %v", err)
		}
		if s.Current() != first || first.Role != rbac.RoleGuest || first.IsAuthenticated {
			t.Fatalf("logout from %s not idempotent: %+v", start, s.Current())
		}
		if _, ok, _ := storage.Get(context.Background(), RoleKey); ok {
			t.Fatalf("logout must clear persisted role")
		}
	}
}

func TestReopenRestoresPersistedRole(t *testing.T) {
	backend := kv.NewMemoryBackend()
	storage := backend.Scope(kv.BrowserScope("b"))
	s, _ := Open(context.Background(), storage, nil)
	_ = s.Login(context.Background(), rbac.RoleAdmin)

	again, err := Open(context.Background(), backend.Scope(kv.BrowserScope("b")), nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if again.Current().Role != rbac.RoleAdmin {
		t.Fatalf("role must survive reload, got %s", again.Current().Role)
	}
}

func TestOpenDiscardsCorruptValue(t *testing.T) {
	for _, raw := range []string{"superadmin", "ADMIN", "{}", " user"} {
		storage := kv.NewMemoryBackend().Scope(kv.BrowserScope("c"))
		_ = storage.Set(context.Background(), RoleKey, raw)
		s, err := Open(context.Background(), storage, utils.NewNopLogger())
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if s.Current().Role != rbac.RoleGuest {
			t.Fatalf("corrupt value %q must yield guest", raw)
		}
		if _, ok, _ := storage.Get(context.Background(), RoleKey); ok {
			t.Fatalf("corrupt value %q must be removed", raw)
		}
	}
}

func TestStorageErrorsSurface(t *testing.T) {
	boom := errors.New("boom")
	if _, err := Open(context.Background(), failingStorage{err: boom}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
	s, _ := openFresh(t)
	s.storage = failingStorage{err: boom}
	if err := s.Login(context.Background(), rbac.RoleUser); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
	if s.Current().IsAuthenticated {
		t.Fatalf("failed persist must leave guest")
	}
}
