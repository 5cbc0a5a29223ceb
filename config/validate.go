package config

import (
	"fmt"
	"strings"
)

const defaultPepper = "3qY1dVvLkS0m9hXo_fusionguard-dev-pepper"

func Validate(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Storage.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
			return fmt.Errorf("storage.redis.addr must be set for redis backend")
		}
	case "sql", "":
		if err := validateSQL(cfg.Storage); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
	if cfg.Telemetry.Interval <= 0 {
		return fmt.Errorf("telemetry.interval must be positive")
	}
	if cfg.Telemetry.AlertProbability < 0 || cfg.Telemetry.AlertProbability > 1 {
		return fmt.Errorf("telemetry.alert_probability must be within [0,1]")
	}
	if cfg.Telemetry.MQTT.Enabled && cfg.Telemetry.MQTT.Broker == "" {
		return fmt.Errorf("telemetry.mqtt.broker must be set when mqtt is enabled")
	}
	if cfg.Notifications.AMQP.Enabled && cfg.Notifications.AMQP.URL == "" {
		return fmt.Errorf("notifications.amqp.url must be set when amqp is enabled")
	}
	pep := strings.TrimSpace(cfg.Pepper)
	if pep == "" {
		return fmt.Errorf("pepper must be set via env")
	}
	if !cfg.IsDev() {
		if pep == defaultPepper {
			return fmt.Errorf("default pepper is not allowed outside APP_ENV=dev")
		}
		if !cfg.TLSEnabled {
			return fmt.Errorf("tls_enabled=false is only allowed in APP_ENV=dev")
		}
	}
	return nil
}

func validateSQL(st StorageConfig) error {
	driver := strings.ToLower(strings.TrimSpace(st.DBDriver))
	switch driver {
	case "sqlite", "":
		if strings.TrimSpace(st.DBPath) == "" {
			return fmt.Errorf("storage.db_path is required for sqlite")
		}
	case "postgres", "pg", "mysql":
		if strings.TrimSpace(st.DBURL) == "" {
			return fmt.Errorf("storage.db_url must be set for %s driver", driver)
		}
	default:
		return fmt.Errorf("unsupported db_driver: %s", st.DBDriver)
	}
	return nil
}
