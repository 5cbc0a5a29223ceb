package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	defaultConfigPath = "config/app.yaml"
	envPrefix         = "FUSIONGUARD_"

	defaultTelemetryInterval = time.Second
	defaultBrowserSessionTTL = 30 * 24 * time.Hour
)

func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}
	cfgPath := configPath()
	if st, err := os.Stat(cfgPath); err == nil && !st.IsDir() {
		if err := cleanenv.ReadConfig(cfgPath, cfg); err != nil {
			return nil, err
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	applyEnvAliases(cfg)
	normalizeConfig(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envAlias maps short deployment variables onto config fields. The first
// non-empty key of each alias wins.
type envAlias struct {
	keys  []string
	apply func(cfg *AppConfig, v string)
}

var envAliases = []envAlias{
	{[]string{"PEPPER"}, func(c *AppConfig, v string) { c.Pepper = v }},
	{[]string{"ENV", "APP_ENV"}, func(c *AppConfig, v string) { c.AppEnv = v }},
	{[]string{"PORT", envPrefix + "PORT"}, func(c *AppConfig, v string) { c.ListenAddr = withPort(c.ListenAddr, v) }},
	{[]string{"DATA_PATH", envPrefix + "DATA_PATH"}, func(c *AppConfig, v string) {
		c.Storage.DBPath = filepath.Join(filepath.Clean(v), "fusionguard.db")
	}},
	{[]string{"DATABASE_URL"}, func(c *AppConfig, v string) { c.Storage.DBURL = v }},
	{[]string{"REDIS_ADDR"}, func(c *AppConfig, v string) { c.Storage.Redis.Addr = v }},
	{[]string{"TELEMETRY_INTERVAL_MS"}, func(c *AppConfig, v string) {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Telemetry.Interval = time.Duration(ms) * time.Millisecond
		}
	}},
}

func applyEnvAliases(cfg *AppConfig) {
	for _, alias := range envAliases {
		if v := firstEnv(alias.keys...); v != "" {
			alias.apply(cfg, v)
		}
	}
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

func orDefault(field *string, fallback string) {
	if *field == "" {
		*field = fallback
	}
}

func normalizeConfig(cfg *AppConfig) {
	st := &cfg.Storage
	trimAll(&cfg.ListenAddr, &cfg.AppEnv, &cfg.Pepper, &st.Backend, &st.DBDriver, &st.DBPath, &st.DBURL,
		&st.Redis.Addr, &cfg.Telemetry.MQTT.Broker, &cfg.Notifications.AMQP.URL, &cfg.Janitor.Spec)
	cfg.AppEnv = strings.ToLower(cfg.AppEnv)
	st.Backend = strings.ToLower(st.Backend)
	st.DBDriver = strings.ToLower(st.DBDriver)
	switch st.DBDriver {
	case "pg", "postgresql":
		st.DBDriver = "postgres"
	}

	orDefault(&cfg.AppEnv, "dev")
	orDefault(&cfg.ListenAddr, "0.0.0.0:8080")
	orDefault(&st.Backend, "sql")
	orDefault(&st.DBDriver, "sqlite")
	orDefault(&st.Redis.KeyPrefix, "fusionguard:")
	orDefault(&cfg.Janitor.Spec, "@every 10m")
	if cfg.IsDev() {
		orDefault(&cfg.Pepper, defaultPepper)
	}
	if cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = defaultTelemetryInterval
	}
	if cfg.BrowserSessionTTL <= 0 {
		cfg.BrowserSessionTTL = defaultBrowserSessionTTL
	}
	if cfg.Security.LoginAttemptsPerMinute <= 0 {
		cfg.Security.LoginAttemptsPerMinute = 5
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func configPath() string {
	if v := firstEnv("APP_CONFIG", envPrefix+"APP_CONFIG"); v != "" {
		return v
	}
	return defaultConfigPath
}

// withPort keeps the host of addr and swaps in port. Non-numeric ports are
// ignored.
func withPort(addr, port string) string {
	if _, err := strconv.Atoi(port); err != nil {
		return addr
	}
	host := "0.0.0.0"
	if i := strings.LastIndex(addr, ":"); i > 0 {
		host = addr[:i]
	}
	return host + ":" + port
}
