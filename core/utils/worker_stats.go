package utils

import (
	"sync/atomic"
	"time"
)

// WorkerStats is the common shape reported by background workers.
type WorkerStats struct {
	Running         bool       `json:"running"`
	TicksTotal      uint64     `json:"ticks_total"`
	TickErrorsTotal uint64     `json:"tick_errors_total"`
	LastTickAtUTC   *time.Time `json:"last_tick_at_utc,omitempty"`
}

// TickObserver counts ticks of a periodic worker. The zero value is ready.
type TickObserver struct {
	ticks      atomic.Uint64
	tickErrors atomic.Uint64
	lastTickNs atomic.Int64
}

func (o *TickObserver) RecordTick(now time.Time, err error) {
	if o == nil {
		return
	}
	o.ticks.Add(1)
	if err != nil {
		o.tickErrors.Add(1)
	}
	o.lastTickNs.Store(now.UTC().UnixNano())
}

func (o *TickObserver) Snapshot(running bool) WorkerStats {
	if o == nil {
		return WorkerStats{Running: running}
	}
	ns := o.lastTickNs.Load()
	var last *time.Time
	if ns > 0 {
		t := time.Unix(0, ns).UTC()
		last = &t
	}
	return WorkerStats{
		Running:         running,
		TicksTotal:      o.ticks.Load(),
		TickErrorsTotal: o.tickErrors.Load(),
		LastTickAtUTC:   last,
	}
}
