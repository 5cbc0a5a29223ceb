package kv

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	updatedAt time.Time
}

// MemoryBackend keeps everything in process. State is lost on restart.
type MemoryBackend struct {
	mu     sync.RWMutex
	scopes map[string]map[string]memoryEntry
	closed bool
	now    func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{scopes: map[string]map[string]memoryEntry{}, now: time.Now}
}

func (m *MemoryBackend) Scope(name string) Storage {
	return &memoryScope{backend: m, scope: name}
}

func (m *MemoryBackend) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// PurgeIdle drops scopes with the given prefix whose newest entry is older
// than cutoff.
func (m *MemoryBackend) PurgeIdle(ctx context.Context, prefix string, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for name, entries := range m.scopes {
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		latest := time.Time{}
		for _, e := range entries {
			if e.updatedAt.After(latest) {
				latest = e.updatedAt
			}
		}
		if latest.Before(cutoff) {
			removed += int64(len(entries))
			delete(m.scopes, name)
		}
	}
	return removed, nil
}

type memoryScope struct {
	backend *MemoryBackend
	scope   string
}

func (s *memoryScope) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	if s.backend.closed {
		return "", false, ErrClosed
	}
	e, ok := s.backend.scopes[s.scope][key]
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *memoryScope) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.backend.closed {
		return ErrClosed
	}
	entries, ok := s.backend.scopes[s.scope]
	if !ok {
		entries = map[string]memoryEntry{}
		s.backend.scopes[s.scope] = entries
	}
	entries[key] = memoryEntry{value: value, updatedAt: s.backend.now()}
	return nil
}

func (s *memoryScope) Touch(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.backend.closed {
		return ErrClosed
	}
	entries := s.backend.scopes[s.scope]
	if e, ok := entries[key]; ok {
		e.updatedAt = s.backend.now()
		entries[key] = e
	}
	return nil
}

func (s *memoryScope) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.backend.closed {
		return ErrClosed
	}
	entries, ok := s.backend.scopes[s.scope]
	if !ok {
		return nil
	}
	delete(entries, key)
	if len(entries) == 0 {
		delete(s.backend.scopes, s.scope)
	}
	return nil
}
