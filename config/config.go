package config

import (
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Poller     PollerConfig     `yaml:"poller"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the alert notification worker pool.
type WorkerPoolConfig struct {
	Size  int `yaml:"size"`
	Queue int `yaml:"queue"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// PollerConfig holds the telemetry poller configuration. Enabled defaults to
// true; the recurring poll only stops when it is explicitly set to false.
type PollerConfig struct {
	Enabled             *bool         `yaml:"enabled"`
	IntervalSeconds     int           `yaml:"interval_seconds"`
	Interval            time.Duration `yaml:"-"`
	FetchTimeoutSeconds int           `yaml:"fetch_timeout_seconds"`
	FetchTimeout        time.Duration `yaml:"-"`
	Concurrency         int           `yaml:"concurrency"`
	HTTPProxy           string        `yaml:"http_proxy"`
	MaxRequestsPerSec   float64       `yaml:"max_requests_per_sec"`
	DedupCacheMinutes   int           `yaml:"dedup_cache_minutes"`
}

// AlertsConfig holds the reading thresholds. Unset values fall back to the defaults.
type AlertsConfig struct {
	TemperatureMin *float64 `yaml:"temperature_min"`
	TemperatureMax *float64 `yaml:"temperature_max"`
	GravityMin     *float64 `yaml:"gravity_min"`
	GravityMax     *float64 `yaml:"gravity_max"`
	BatteryMin     *float64 `yaml:"battery_min"`
	TiltMin        *float64 `yaml:"tilt_min"`
	TiltMax        *float64 `yaml:"tilt_max"`
	RSSIMin        *int     `yaml:"rssi_min"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	ApplyPostgresDDL       bool   `yaml:"apply_postgres_ddl"`
	LogLevel               string `yaml:"log_level"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path and applies defaults and
// environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyEnv() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		} else {
			log.Warnf("ignoring invalid PORT %q: %v", port, err)
		}
	}
}

// ApplyDefaults fills unset values. It is exported so tests can build a Config
// literal and normalize it the same way Load does.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Poller.Enabled == nil {
		enabled := true
		cfg.Poller.Enabled = &enabled
	}
	if cfg.Poller.IntervalSeconds <= 0 {
		cfg.Poller.IntervalSeconds = 60
	}
	cfg.Poller.Interval = time.Duration(cfg.Poller.IntervalSeconds) * time.Second

	if cfg.Poller.FetchTimeoutSeconds <= 0 {
		cfg.Poller.FetchTimeoutSeconds = 15
	}
	cfg.Poller.FetchTimeout = time.Duration(cfg.Poller.FetchTimeoutSeconds) * time.Second

	if cfg.Poller.Concurrency <= 0 {
		cfg.Poller.Concurrency = 4
	}
	if cfg.Poller.MaxRequestsPerSec <= 0 {
		cfg.Poller.MaxRequestsPerSec = 5
	}
	if cfg.Poller.DedupCacheMinutes <= 0 {
		cfg.Poller.DedupCacheMinutes = 60
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.Queue <= 0 {
		cfg.WorkerPool.Queue = 64
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// SchedulerEnabled reports whether the recurring poll should run.
func (pc PollerConfig) SchedulerEnabled() bool {
	return pc.Enabled == nil || *pc.Enabled
}
