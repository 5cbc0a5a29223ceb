// Package session holds the role of one browser and persists it through a
// kv.Storage port.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fusionguard/core/kv"
	"fusionguard/core/rbac"
	"fusionguard/core/utils"
)

const RoleKey = "fusionguard_role"

var ErrInvalidRole = errors.New("session: login requires user or admin role")

type Session struct {
	Role            rbac.Role `json:"role"`
	IsAuthenticated bool      `json:"is_authenticated"`
}

func newSession(role rbac.Role) Session {
	return Session{Role: role, IsAuthenticated: role.Authenticated()}
}

// Store is the single source of truth for one browser's role. It is safe for
// concurrent use by requests sharing the same browser cookie.
type Store struct {
	mu      sync.RWMutex
	storage kv.Storage
	logger  *utils.Logger
	current Session
}

// Open restores the persisted role. Absent values yield a guest session;
// unrecognised values are discarded and also yield guest. A restored login is
// touched so the session expires by inactivity, not by age. A failed touch is
// logged and does not fail the request.
func Open(ctx context.Context, storage kv.Storage, logger *utils.Logger) (*Store, error) {
	if storage == nil {
		return nil, errors.New("session: nil storage")
	}
	s := &Store{storage: storage, logger: logger, current: newSession(rbac.RoleGuest)}
	raw, ok, err := storage.Get(ctx, RoleKey)
	if err != nil {
		return nil, fmt.Errorf("session restore: %w", err)
	}
	if !ok {
		return s, nil
	}
	role := rbac.ParseRole(raw)
	if role == rbac.RoleGuest {
		if raw != string(rbac.RoleGuest) {
			logger.Printf("session: discarding unrecognised persisted role")
		}
		if err := storage.Remove(ctx, RoleKey); err != nil {
			return nil, fmt.Errorf("session discard: %w", err)
		}
		return s, nil
	}
	if err := storage.Touch(ctx, RoleKey); err != nil {
		logger.Errorf("session touch: %v", err)
	}
	s.current = newSession(role)
	return s, nil
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Login switches to role and persists it. Only user and admin are accepted.
func (s *Store) Login(ctx context.Context, role rbac.Role) error {
	if !role.Authenticated() {
		return ErrInvalidRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(ctx, RoleKey, string(role)); err != nil {
		return fmt.Errorf("session persist: %w", err)
	}
	s.current = newSession(role)
	return nil
}

// Logout resets to guest and clears the persisted value. Calling it on a
// guest session is harmless.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Remove(ctx, RoleKey); err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	s.current = newSession(rbac.RoleGuest)
	return nil
}
