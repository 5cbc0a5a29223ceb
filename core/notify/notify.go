// Package notify turns detection snapshots into operator alerts.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fusionguard/core/settings"
	"fusionguard/core/telemetry"
	"fusionguard/core/utils"
)

type Severity string

const SeverityCritical Severity = "critical"

type Alert struct {
	Severity      Severity  `json:"severity"`
	Message       string    `json:"message"`
	DetectionProb float64   `json:"detection_prob"`
	ThermalC      float64   `json:"thermal_c"`
	DistanceM     float64   `json:"distance_m"`
	ServoAngle    int       `json:"servo_angle"`
	Email         bool      `json:"email"`
	Sound         bool      `json:"sound"`
	At            time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
}

// SettingsSource is satisfied by *settings.Service.
type SettingsSource interface {
	Load(ctx context.Context) (settings.Settings, error)
}

type LogPublisher struct {
	logger *utils.Logger
}

func NewLogPublisher(logger *utils.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, alert Alert) error {
	p.logger.Warnf("%s prob=%.2f thermal=%.1f distance=%.1f", alert.Message, alert.DetectionProb, alert.ThermalC, alert.DistanceM)
	return nil
}

// AlertSink is a telemetry.Sink that publishes an alert for confirmed
// detections, subject to the notification settings and the safety cooldown.
type AlertSink struct {
	settings   SettingsSource
	publishers []Publisher
	logger     *utils.Logger

	mu   sync.Mutex
	last time.Time
}

func NewAlertSink(src SettingsSource, logger *utils.Logger, publishers ...Publisher) *AlertSink {
	return &AlertSink{settings: src, publishers: publishers, logger: logger}
}

func (s *AlertSink) Consume(ctx context.Context, snap telemetry.Snapshot) error {
	if !snap.HumanDetected {
		return nil
	}
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Errorf("alert sink: %v", err)
	}
	if !cfg.Notifications.SystemNotifs {
		return nil
	}
	if snap.DetectionProb*100 < float64(cfg.Detection.Threshold) {
		return nil
	}
	s.mu.Lock()
	if !s.last.IsZero() && snap.At.Sub(s.last) < cfg.Cooldown() {
		s.mu.Unlock()
		return nil
	}
	s.last = snap.At
	s.mu.Unlock()

	alert := Alert{
		Severity:      SeverityCritical,
		Message:       fmt.Sprintf("Human heat signature confirmed (Prob: %.1f%%)", snap.DetectionProb*100),
		DetectionProb: snap.DetectionProb,
		ThermalC:      snap.ThermalC,
		DistanceM:     snap.DistanceM,
		ServoAngle:    snap.ServoAngle,
		Email:         cfg.Notifications.EmailAlerts,
		Sound:         cfg.Notifications.SoundAlarm,
		At:            snap.At,
	}
	for _, p := range s.publishers {
		if err := p.Publish(ctx, alert); err != nil {
			return fmt.Errorf("publish alert: %w", err)
		}
	}
	return nil
}
