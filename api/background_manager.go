package api

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fusionguard/core/utils"
)

type BackgroundWorker interface {
	StartWithContext(context.Context)
	StopWithContext(context.Context) error
}

type BackgroundController interface {
	Start(context.Context)
	Stop(context.Context) error
}

// SessionReset drops every browser session. It runs once before the workers
// when sessions are revoked on startup.
type SessionReset func(context.Context) error

// NamedWorker labels a worker for lifecycle logs.
type NamedWorker struct {
	Name   string
	Worker BackgroundWorker
}

type workerGroup struct {
	reset   SessionReset
	revoke  bool
	logger  *utils.Logger
	members []NamedWorker

	mu      sync.Mutex
	started bool
}

func BuildBackgroundController(reset SessionReset, revokeOnStartup bool, logger *utils.Logger, workers ...NamedWorker) BackgroundController {
	g := &workerGroup{reset: reset, revoke: revokeOnStartup, logger: logger}
	for _, nw := range workers {
		if nw.Worker != nil {
			g.members = append(g.members, nw)
		}
	}
	return g
}

func (g *workerGroup) Start(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return
	}
	g.started = true
	if g.revoke && g.reset != nil {
		if err := g.reset(ctx); err != nil {
			g.logger.Errorf("revoke sessions on startup: %v", err)
		}
	}
	for _, m := range g.members {
		m.Worker.StartWithContext(ctx)
		g.logger.Printf("worker started name=%s", m.Name)
	}
}

// Stop halts workers in reverse start order and reports every failure.
func (g *workerGroup) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.started {
		return nil
	}
	g.started = false
	var errs []error
	for i := len(g.members) - 1; i >= 0; i-- {
		m := g.members[i]
		if err := m.Worker.StopWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
		}
	}
	return errors.Join(errs...)
}
