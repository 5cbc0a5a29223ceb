// Package telemetry generates synthetic sensor snapshots for dashboard
// animation. Values are random and carry no meaning.
package telemetry

import (
	"math/rand/v2"
	"time"
)

type Mode string

const (
	ModeScanning Mode = "Active Scanning"
	ModeTarget   Mode = "Target Logged"
	ModeOffline  Mode = "System Offline"
)

const (
	FPSMin       = 28
	FPSMax       = 33
	LatencyMinMS = 40
	LatencyMaxMS = 55

	ThermalNormalMin = 22.0
	ThermalNormalMax = 23.0
	ThermalAlarmMin  = 36.0
	ThermalAlarmMax  = 37.5

	DistanceNormalMin = 4.0
	DistanceNormalMax = 6.0
	DistanceAlarmMin  = 1.0
	DistanceAlarmMax  = 2.0

	ProbNormalMax = 0.2
	ProbAlarmMin  = 0.9
	ProbAlarmMax  = 1.0

	ServoStep   = 5
	ServoCycle  = 180
	DefaultRate = 0.05
)

type Snapshot struct {
	Seq           uint64    `json:"seq"`
	At            time.Time `json:"at"`
	FPS           int       `json:"fps"`
	LatencyMS     int       `json:"latency_ms"`
	ThermalC      float64   `json:"thermal_c"`
	DistanceM     float64   `json:"distance_m"`
	ServoAngle    int       `json:"servo_angle"`
	DetectionProb float64   `json:"detection_prob"`
	HumanDetected bool      `json:"human_detected"`
	Mode          Mode      `json:"mode"`
}

// Rand is the subset of math/rand/v2 used by the generator.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// NewSeededRand returns a deterministic source, useful for tests and replays.
func NewSeededRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type Options struct {
	AlertProbability float64
	// Active is false while the system is switched off; no alerts are raised
	// then.
	Active bool
}

func Initial() Snapshot {
	return Snapshot{
		FPS:           30,
		LatencyMS:     45,
		ThermalC:      22.5,
		DistanceM:     4.2,
		ServoAngle:    90,
		DetectionProb: 0.1,
		Mode:          ModeScanning,
	}
}

// Next draws the snapshot following prev. One alert draw drives thermal,
// distance and probability together so correlated widgets agree.
func Next(prev Snapshot, rng Rand, opts Options) Snapshot {
	if rng == nil {
		rng = globalRand{}
	}
	alert := opts.Active && rng.Float64() < opts.AlertProbability
	next := Snapshot{
		Seq:        prev.Seq + 1,
		FPS:        FPSMin + rng.IntN(FPSMax-FPSMin+1),
		LatencyMS:  LatencyMinMS + rng.IntN(LatencyMaxMS-LatencyMinMS+1),
		ServoAngle: (prev.ServoAngle + ServoStep) % ServoCycle,
	}
	if alert {
		next.ThermalC = between(rng, ThermalAlarmMin, ThermalAlarmMax)
		next.DistanceM = between(rng, DistanceAlarmMin, DistanceAlarmMax)
		next.DetectionProb = between(rng, ProbAlarmMin, ProbAlarmMax)
		next.HumanDetected = true
		next.Mode = ModeTarget
		return next
	}
	next.ThermalC = between(rng, ThermalNormalMin, ThermalNormalMax)
	next.DistanceM = between(rng, DistanceNormalMin, DistanceNormalMax)
	next.DetectionProb = between(rng, 0, ProbNormalMax)
	next.Mode = ModeScanning
	if !opts.Active {
		next.Mode = ModeOffline
	}
	return next
}

func between(rng Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
