// Package system stores the global on/off switch of the robot.
package system

import (
	"context"
	"errors"
	"fmt"

	"fusionguard/core/kv"
	"fusionguard/core/utils"
)

const ModeKey = "fusionguard_system_mode"

type Mode string

const (
	ModeActive   Mode = "ACTIVE"
	ModeInactive Mode = "INACTIVE"
)

var ErrInvalidMode = errors.New("system mode must be ACTIVE or INACTIVE")

func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeActive, ModeInactive:
		return Mode(raw), nil
	default:
		return "", ErrInvalidMode
	}
}

type Service struct {
	storage kv.Storage
	logger  *utils.Logger
}

func NewService(storage kv.Storage, logger *utils.Logger) *Service {
	return &Service{storage: storage, logger: logger}
}

// Get returns the stored mode. Absent or unknown values read as ACTIVE.
func (s *Service) Get(ctx context.Context) (Mode, error) {
	raw, ok, err := s.storage.Get(ctx, ModeKey)
	if err != nil {
		return ModeActive, fmt.Errorf("system mode: %w", err)
	}
	if !ok {
		return ModeActive, nil
	}
	m, err := ParseMode(raw)
	if err != nil {
		return ModeActive, nil
	}
	return m, nil
}

func (s *Service) Set(ctx context.Context, m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, ModeKey, string(m)); err != nil {
		return fmt.Errorf("system mode: %w", err)
	}
	s.logger.Printf("system mode set to %s", m)
	return nil
}

// IsActive reports ACTIVE on storage errors so the dashboards keep animating.
func (s *Service) IsActive(ctx context.Context) bool {
	m, err := s.Get(ctx)
	if err != nil {
		s.logger.Errorf("%v", err)
	}
	return m == ModeActive
}
