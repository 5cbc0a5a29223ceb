// Package settings persists the admin detection, notification and safety
// configuration.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fusionguard/core/kv"
	"fusionguard/core/utils"
)

const Key = "fusionguard_settings"

type Sensitivity string

const (
	SensitivityLow    Sensitivity = "Low"
	SensitivityMedium Sensitivity = "Medium"
	SensitivityHigh   Sensitivity = "High"
)

type Detection struct {
	Threshold     int         `json:"threshold"`
	Sensitivity   Sensitivity `json:"sensitivity"`
	ThermalDelta  float64     `json:"thermal_delta"`
	UltraDistance float64     `json:"ultra_distance"`
}

type Notifications struct {
	SystemNotifs bool `json:"system_notifs"`
	CriticalOnly bool `json:"critical_only"`
	EmailAlerts  bool `json:"email_alerts"`
	SoundAlarm   bool `json:"sound_alarm"`
}

type Safety struct {
	AutoResume      bool `json:"auto_resume"`
	LogEvents       bool `json:"log_events"`
	CooldownSeconds int  `json:"cooldown"`
}

type Settings struct {
	Detection     Detection     `json:"detection"`
	Notifications Notifications `json:"notifications"`
	Safety        Safety        `json:"safety"`
	UpdatedAt     *time.Time    `json:"updated_at,omitempty"`
}

func Defaults() Settings {
	return Settings{
		Detection:     Detection{Threshold: 85, Sensitivity: SensitivityMedium, ThermalDelta: 2.5, UltraDistance: 1.5},
		Notifications: Notifications{SystemNotifs: true, CriticalOnly: false, EmailAlerts: true, SoundAlarm: true},
		Safety:        Safety{AutoResume: false, LogEvents: true, CooldownSeconds: 30},
	}
}

func (s Settings) Cooldown() time.Duration {
	return time.Duration(s.Safety.CooldownSeconds) * time.Second
}

var ErrInvalid = errors.New("invalid settings")

func Validate(s Settings) error {
	d := s.Detection
	if d.Threshold < 0 || d.Threshold > 100 {
		return fmt.Errorf("%w: threshold must be within 0..100", ErrInvalid)
	}
	switch d.Sensitivity {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
	default:
		return fmt.Errorf("%w: sensitivity must be Low, Medium or High", ErrInvalid)
	}
	if d.ThermalDelta < 0 || d.ThermalDelta > 100 {
		return fmt.Errorf("%w: thermal delta must be within 0..100", ErrInvalid)
	}
	if d.UltraDistance < 0 || d.UltraDistance > 10 {
		return fmt.Errorf("%w: ultrasonic distance must be within 0..10", ErrInvalid)
	}
	if s.Safety.CooldownSeconds < 0 || s.Safety.CooldownSeconds > 3600 {
		return fmt.Errorf("%w: cooldown must be within 0..3600 seconds", ErrInvalid)
	}
	return nil
}

type Service struct {
	storage kv.Storage
	logger  *utils.Logger
	now     func() time.Time
}

func NewService(storage kv.Storage, logger *utils.Logger) *Service {
	return &Service{storage: storage, logger: logger, now: time.Now}
}

// Load returns the stored settings, or the defaults when nothing valid is
// stored.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	raw, ok, err := s.storage.Get(ctx, Key)
	if err != nil {
		return Defaults(), fmt.Errorf("settings load: %w", err)
	}
	if !ok {
		return Defaults(), nil
	}
	var out Settings
	if err := json.Unmarshal([]byte(raw), &out); err != nil || Validate(out) != nil {
		s.logger.Printf("settings: stored value is malformed, using defaults")
		return Defaults(), nil
	}
	return out, nil
}

func (s *Service) Save(ctx context.Context, in Settings) (Settings, error) {
	if err := Validate(in); err != nil {
		return Settings{}, err
	}
	now := s.now().UTC()
	in.UpdatedAt = &now
	b, err := json.Marshal(in)
	if err != nil {
		return Settings{}, err
	}
	if err := s.storage.Set(ctx, Key, string(b)); err != nil {
		return Settings{}, fmt.Errorf("settings save: %w", err)
	}
	s.logger.Printf("settings updated threshold=%d sensitivity=%s", in.Detection.Threshold, in.Detection.Sensitivity)
	return in, nil
}

func (s *Service) Reset(ctx context.Context) (Settings, error) {
	return s.Save(ctx, Defaults())
}
