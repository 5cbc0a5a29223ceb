package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fusionguard/core/utils"
)

type recordingSink struct {
	mu    sync.Mutex
	snaps []Snapshot
	err   error
}

func (s *recordingSink) Consume(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

type fixedMode bool

func (m fixedMode) IsActive(context.Context) bool { return bool(m) }

func TestTickFeedsSinksAndEvents(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	f := NewFeed(FeedConfig{
		AlertProbability: 1,
		Rand:             NewSeededRand(5),
		Sinks:            []Sink{sink},
		Logger:           utils.NewNopLogger(),
	})
	for i := 0; i < 3; i++ {
		f.Tick(context.Background())
	}
	if sink.count() != 3 {
		t.Fatalf("expected 3 snapshots in sink, got %d", sink.count())
	}
	if f.Latest().Seq != 3 || !f.Latest().HumanDetected {
		t.Fatalf("unexpected latest: %+v", f.Latest())
	}
	if n := len(f.Events()); n != 3 {
		t.Fatalf("expected 3 alert events, got %d", n)
	}
	st := f.StatsSnapshot()
	if st.TicksTotal != 3 || st.TickErrorsTotal != 3 {
		t.Fatalf("sink errors must be counted, got %+v", st)
	}
}

func TestTickHonoursModeSource(t *testing.T) {
	f := NewFeed(FeedConfig{AlertProbability: 1, Rand: NewSeededRand(5), Mode: fixedMode(false)})
	snap := f.Tick(context.Background())
	if snap.HumanDetected || snap.Mode != ModeOffline {
		t.Fatalf("inactive mode must suppress alerts: %+v", snap)
	}
	if len(f.Events()) != 0 {
		t.Fatalf("offline ticks must not log events")
	}
}

func TestRunStopsTickerOnCancel(t *testing.T) {
	f := NewFeed(FeedConfig{Interval: 5 * time.Millisecond, Rand: NewSeededRand(1)})
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan Snapshot, 64)
	done := make(chan error, 1)
	go func() {
		done <- f.Run(ctx, func(s Snapshot) error {
			select {
			case got <- s:
			default:
			}
			return nil
		})
	}()
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot emitted")
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
	if f.ActiveRuns() != 0 {
		t.Fatalf("ticker still held after return")
	}
	seq := f.Latest().Seq
	time.Sleep(30 * time.Millisecond)
	if f.Latest().Seq != seq {
		t.Fatalf("feed kept ticking after cancel")
	}
}

func TestRunStopsOnEmitError(t *testing.T) {
	f := NewFeed(FeedConfig{Interval: time.Millisecond})
	boom := errors.New("client gone")
	err := f.Run(context.Background(), func(Snapshot) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected emit error, got %v", err)
	}
	if f.ActiveRuns() != 0 {
		t.Fatalf("ticker still held after return")
	}
}

func TestStartStop(t *testing.T) {
	sink := &recordingSink{}
	f := NewFeed(FeedConfig{Interval: 2 * time.Millisecond, Sinks: []Sink{sink}})
	f.StartWithContext(context.Background())
	f.StartWithContext(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if sink.count() == 0 {
		t.Fatalf("background feed did not tick")
	}
	if !f.StatsSnapshot().Running {
		t.Fatalf("feed must report running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.StopWithContext(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if f.ActiveRuns() != 0 || f.StatsSnapshot().Running {
		t.Fatalf("feed must be stopped")
	}
	if err := f.StopWithContext(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestPollAdvancesOnlyWhenIdle(t *testing.T) {
	ctx := context.Background()
	f := NewFeed(FeedConfig{Interval: time.Hour, Rand: NewSeededRand(3), Logger: utils.NewNopLogger()})
	first := f.Poll(ctx)
	second := f.Poll(ctx)
	if first.Seq == 0 || second.Seq != first.Seq+1 {
		t.Fatalf("idle feed must advance per poll, got %d then %d", first.Seq, second.Seq)
	}

	f.StartWithContext(ctx)
	defer func() { _ = f.StopWithContext(ctx) }()
	if a, b := f.Poll(ctx), f.Poll(ctx); a.Seq != b.Seq || a.Seq != second.Seq {
		t.Fatalf("running feed must serve its latest snapshot, got %d and %d", a.Seq, b.Seq)
	}
}
