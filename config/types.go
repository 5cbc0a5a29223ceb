package config

import "time"

type AppConfig struct {
	ListenAddr        string              `yaml:"listen_addr" env:"FUSIONGUARD_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	AppEnv            string              `yaml:"app_env" env:"FUSIONGUARD_APP_ENV" env-default:"dev"`
	Pepper            string              `yaml:"pepper" env:"FUSIONGUARD_PEPPER"`
	TLSEnabled        bool                `yaml:"tls_enabled" env:"FUSIONGUARD_TLS_ENABLED"`
	TLSCert           string              `yaml:"tls_cert" env:"FUSIONGUARD_TLS_CERT"`
	TLSKey            string              `yaml:"tls_key" env:"FUSIONGUARD_TLS_KEY"`
	BrowserSessionTTL time.Duration       `yaml:"browser_session_ttl" env:"FUSIONGUARD_BROWSER_SESSION_TTL" env-default:"720h"`
	Storage           StorageConfig       `yaml:"storage"`
	Telemetry         TelemetryConfig     `yaml:"telemetry"`
	Notifications     NotificationsConfig `yaml:"notifications"`
	Janitor           JanitorConfig       `yaml:"janitor"`
	Security          SecurityConfig      `yaml:"security"`
	Observability     ObservabilityConfig `yaml:"observability"`
}

func (c *AppConfig) IsDev() bool {
	if c == nil {
		return false
	}
	return c.AppEnv == "dev"
}

type StorageConfig struct {
	// Backend is one of sql, redis or memory.
	Backend  string      `yaml:"backend" env:"FUSIONGUARD_STORAGE_BACKEND" env-default:"sql"`
	DBDriver string      `yaml:"db_driver" env:"FUSIONGUARD_DB_DRIVER" env-default:"sqlite"`
	DBPath   string      `yaml:"db_path" env:"FUSIONGUARD_DB_PATH" env-default:"data/fusionguard.db"`
	DBURL    string      `yaml:"db_url" env:"FUSIONGUARD_DB_URL"`
	Redis    RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" env:"FUSIONGUARD_REDIS_ADDR"`
	Password  string `yaml:"password" env:"FUSIONGUARD_REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"FUSIONGUARD_REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" env:"FUSIONGUARD_REDIS_KEY_PREFIX" env-default:"fusionguard:"`
}

type TelemetryConfig struct {
	Interval         time.Duration `yaml:"interval" env:"FUSIONGUARD_TELEMETRY_INTERVAL" env-default:"1s"`
	AlertProbability float64       `yaml:"alert_probability" env:"FUSIONGUARD_TELEMETRY_ALERT_PROBABILITY" env-default:"0.05"`
	AmbientFeed      bool          `yaml:"ambient_feed" env:"FUSIONGUARD_TELEMETRY_AMBIENT_FEED" env-default:"true"`
	MQTT             MQTTConfig    `yaml:"mqtt"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled" env:"FUSIONGUARD_MQTT_ENABLED"`
	Broker   string `yaml:"broker" env:"FUSIONGUARD_MQTT_BROKER"`
	Topic    string `yaml:"topic" env:"FUSIONGUARD_MQTT_TOPIC" env-default:"fusionguard/telemetry"`
	ClientID string `yaml:"client_id" env:"FUSIONGUARD_MQTT_CLIENT_ID" env-default:"fusionguard-feed"`
	Username string `yaml:"username" env:"FUSIONGUARD_MQTT_USERNAME"`
	Password string `yaml:"password" env:"FUSIONGUARD_MQTT_PASSWORD"`
}

type NotificationsConfig struct {
	AMQP AMQPConfig `yaml:"amqp"`
}

type AMQPConfig struct {
	Enabled    bool   `yaml:"enabled" env:"FUSIONGUARD_AMQP_ENABLED"`
	URL        string `yaml:"url" env:"FUSIONGUARD_AMQP_URL"`
	Exchange   string `yaml:"exchange" env:"FUSIONGUARD_AMQP_EXCHANGE" env-default:"fusionguard.alerts"`
	RoutingKey string `yaml:"routing_key" env:"FUSIONGUARD_AMQP_ROUTING_KEY" env-default:"detections"`
}

type JanitorConfig struct {
	Enabled bool   `yaml:"enabled" env:"FUSIONGUARD_JANITOR_ENABLED" env-default:"true"`
	Spec    string `yaml:"spec" env:"FUSIONGUARD_JANITOR_SPEC" env-default:"@every 10m"`
}

type SecurityConfig struct {
	TrustedProxies          []string `yaml:"trusted_proxies" env:"FUSIONGUARD_TRUSTED_PROXIES"`
	LoginAttemptsPerMinute  int      `yaml:"login_attempts_per_minute" env:"FUSIONGUARD_LOGIN_ATTEMPTS_PER_MINUTE" env-default:"5"`
	RevokeSessionsOnStartup bool     `yaml:"revoke_sessions_on_startup" env:"FUSIONGUARD_REVOKE_SESSIONS_ON_STARTUP"`
}

type ObservabilityConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled" env:"FUSIONGUARD_METRICS_ENABLED"`
	MetricsToken   string `yaml:"metrics_token" env:"FUSIONGUARD_METRICS_TOKEN"`
}
