package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fusionguard/core/kv"
	"fusionguard/core/utils"

	"github.com/robfig/cron/v3"
)

// IdlePurger is implemented by backends that cannot expire keys themselves.
type IdlePurger interface {
	PurgeIdle(ctx context.Context, prefix string, cutoff time.Time) (int64, error)
}

// Janitor periodically drops browser scopes that have been idle longer than
// the browser session TTL.
type Janitor struct {
	purger IdlePurger
	ttl    time.Duration
	spec   string
	logger *utils.Logger
	now    func() time.Time
	obs    utils.TickObserver

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

func NewJanitor(purger IdlePurger, ttl time.Duration, spec string, logger *utils.Logger) (*Janitor, error) {
	if purger == nil {
		return nil, errors.New("janitor: nil purger")
	}
	if ttl <= 0 {
		return nil, errors.New("janitor: ttl must be positive")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("janitor: invalid spec %q: %w", spec, err)
	}
	return &Janitor{purger: purger, ttl: ttl, spec: spec, logger: logger, now: time.Now}, nil
}

func (j *Janitor) StartWithContext(ctx context.Context) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(j.spec, func() {
		if _, err := j.RunOnce(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			j.logger.Errorf("janitor tick: %v", err)
		}
	}); err != nil {
		cancel()
		j.logger.Errorf("janitor schedule: %v", err)
		return
	}
	c.Start()
	j.cron = c
	j.cancel = cancel
	j.logger.Printf("janitor started spec=%q ttl=%s", j.spec, j.ttl)
}

func (j *Janitor) StopWithContext(ctx context.Context) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	c := j.cron
	cancel := j.cancel
	j.cron = nil
	j.cancel = nil
	j.mu.Unlock()
	if c == nil {
		return nil
	}
	cancel()
	done := c.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce purges idle browser scopes and returns the number of removed rows.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.ttl)
	n, err := j.purger.PurgeIdle(ctx, kv.BrowserPrefix(), cutoff)
	j.obs.RecordTick(j.now(), err)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.Printf("janitor purged %d idle browser entries", n)
	}
	return n, nil
}

func (j *Janitor) StatsSnapshot() utils.WorkerStats {
	if j == nil {
		return utils.WorkerStats{}
	}
	j.mu.Lock()
	running := j.cron != nil
	j.mu.Unlock()
	return j.obs.Snapshot(running)
}
