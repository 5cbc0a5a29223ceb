package telemetry

import (
	"fmt"
	"sync"
	"time"
)

const EventLogSize = 10

type EventKind string

const (
	EventInfo  EventKind = "info"
	EventAlert EventKind = "alert"
)

type Event struct {
	At      time.Time `json:"at"`
	Kind    EventKind `json:"kind"`
	Message string    `json:"message"`
}

func alertEvent(s Snapshot) Event {
	return Event{
		At:      s.At,
		Kind:    EventAlert,
		Message: fmt.Sprintf("CRITICAL: Human heat signature confirmed via ML (Prob: %.1f%%)", s.DetectionProb*100),
	}
}

func sweepEvent(s Snapshot) Event {
	return Event{
		At:      s.At,
		Kind:    EventInfo,
		Message: fmt.Sprintf("SYSTEM: Sensor sweep completed at %d°", s.ServoAngle),
	}
}

// EventLog keeps the newest events first, bounded to a fixed size.
type EventLog struct {
	mu    sync.RWMutex
	size  int
	items []Event
}

func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = EventLogSize
	}
	return &EventLog{size: size}
}

func (l *EventLog) Add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]Event{e}, l.items...)
	if len(l.items) > l.size {
		l.items = l.items[:l.size]
	}
}

func (l *EventLog) List() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.items))
	copy(out, l.items)
	return out
}
