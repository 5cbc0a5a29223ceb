package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"fusionguard/core/utils"
)

const DefaultInterval = time.Second

// Sink receives every snapshot produced by a Feed. Errors are logged and
// counted; they never stop the feed.
type Sink interface {
	Consume(ctx context.Context, snap Snapshot) error
}

// ModeSource reports whether the system is switched on.
type ModeSource interface {
	IsActive(ctx context.Context) bool
}

type FeedConfig struct {
	Interval         time.Duration
	AlertProbability float64
	Rand             Rand
	Mode             ModeSource
	Sinks            []Sink
	Logger           *utils.Logger
	Now              func() time.Time
}

// Feed drives Next on a ticker. A Feed either runs in the background
// (StartWithContext) or is pumped by a caller through Run.
type Feed struct {
	cfg    FeedConfig
	events *EventLog
	obs    utils.TickObserver
	runs   atomic.Int64

	mu     sync.Mutex
	latest Snapshot

	lifeMu  sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewFeed(cfg FeedConfig) *Feed {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Rand == nil {
		cfg.Rand = globalRand{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Feed{cfg: cfg, events: NewEventLog(EventLogSize), latest: Initial()}
}

func (f *Feed) active(ctx context.Context) bool {
	if f.cfg.Mode == nil {
		return true
	}
	return f.cfg.Mode.IsActive(ctx)
}

// Tick advances the feed by one step and hands the snapshot to the sinks.
func (f *Feed) Tick(ctx context.Context) Snapshot {
	active := f.active(ctx)
	f.mu.Lock()
	snap := Next(f.latest, f.cfg.Rand, Options{AlertProbability: f.cfg.AlertProbability, Active: active})
	snap.At = f.cfg.Now().UTC()
	f.latest = snap
	sweep := active && !snap.HumanDetected && f.cfg.Rand.Float64() > 0.8
	f.mu.Unlock()

	switch {
	case snap.HumanDetected:
		f.events.Add(alertEvent(snap))
	case sweep:
		f.events.Add(sweepEvent(snap))
	}

	var sinkErr error
	for _, s := range f.cfg.Sinks {
		if err := s.Consume(ctx, snap); err != nil {
			f.cfg.Logger.Errorf("telemetry sink: %v", err)
			sinkErr = errors.Join(sinkErr, err)
		}
	}
	f.obs.RecordTick(snap.At, sinkErr)
	return snap
}

// Run ticks until ctx is done or emit fails. The ticker is always stopped on
// return.
func (f *Feed) Run(ctx context.Context, emit func(Snapshot) error) error {
	f.runs.Add(1)
	defer f.runs.Add(-1)
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap := f.Tick(ctx)
			if emit == nil {
				continue
			}
			if err := emit(snap); err != nil {
				return err
			}
		}
	}
}

// ActiveRuns is the number of Run loops currently holding a ticker.
func (f *Feed) ActiveRuns() int {
	return int(f.runs.Load())
}

func (f *Feed) StartWithContext(ctx context.Context) {
	if f == nil {
		return
	}
	f.lifeMu.Lock()
	defer f.lifeMu.Unlock()
	if f.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done
	f.running = true
	go func() {
		defer close(done)
		err := f.Run(runCtx, nil)
		if err != nil && !errors.Is(err, context.Canceled) {
			f.cfg.Logger.Errorf("telemetry feed stopped: %v", err)
		}
	}()
}

func (f *Feed) StopWithContext(ctx context.Context) error {
	if f == nil {
		return nil
	}
	f.lifeMu.Lock()
	cancel := f.cancel
	done := f.done
	f.cancel = nil
	f.done = nil
	f.running = false
	f.lifeMu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll returns the latest snapshot while the feed runs in the background. A
// feed that is not running advances one step instead, so polling clients
// still see fresh readings.
func (f *Feed) Poll(ctx context.Context) Snapshot {
	f.lifeMu.Lock()
	running := f.running
	f.lifeMu.Unlock()
	if running {
		return f.Latest()
	}
	return f.Tick(ctx)
}

func (f *Feed) Latest() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *Feed) Events() []Event {
	return f.events.List()
}

func (f *Feed) StatsSnapshot() utils.WorkerStats {
	if f == nil {
		return utils.WorkerStats{}
	}
	f.lifeMu.Lock()
	running := f.running
	f.lifeMu.Unlock()
	return f.obs.Snapshot(running)
}
