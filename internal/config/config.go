package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the warehouse monitor.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	DataService DataServiceConfig `yaml:"data_service"`
	Refresh     RefreshConfig     `yaml:"refresh"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Storage     StorageConfig     `yaml:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DataServiceConfig holds connection settings for the anomaly analysis backend.
type DataServiceConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (c DataServiceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RefreshConfig tunes the dashboard refresh cycle: trigger debouncing,
// the processing-detection window, and the bounded report poller.
type RefreshConfig struct {
	DebounceMillis          int `yaml:"debounce_millis"`
	ProcessingWindowSeconds int `yaml:"processing_window_seconds"`
	PollIntervalSeconds     int `yaml:"poll_interval_seconds"`
	PollMaxAttempts         int `yaml:"poll_max_attempts"`
}

// Debounce returns the trigger quiet period as a duration.
func (c RefreshConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// ProcessingWindow returns the report recency window inside which a zero
// anomaly count is treated as "analysis still running".
func (c RefreshConfig) ProcessingWindow() time.Duration {
	return time.Duration(c.ProcessingWindowSeconds) * time.Second
}

// PollInterval returns the delay between poll attempts.
func (c RefreshConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ScoringConfig tunes the priority scorer and the summary fallback split.
type ScoringConfig struct {
	HourlyRate           float64 `yaml:"hourly_rate"`
	HighRiskLocation     string  `yaml:"high_risk_location"` // regexp over location names
	FallbackCriticalPct  int     `yaml:"fallback_critical_pct"`
	FallbackReviewPct    int     `yaml:"fallback_review_pct"`
	FallbackResolvedPct  int     `yaml:"fallback_resolved_pct"`
}

// StorageConfig holds snapshot cache and cycle history settings.
// Both stores are optional: empty values disable them.
type StorageConfig struct {
	RedisAddr          string `yaml:"redis_addr"`
	RedisDB            int    `yaml:"redis_db"`
	SnapshotTTLMinutes int    `yaml:"snapshot_ttl_minutes"`
	DatabaseURL        string `yaml:"database_url"`
}

// SnapshotTTL returns the cached snapshot lifetime.
func (c StorageConfig) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLMinutes) * time.Minute
}

// Load reads and parses the configuration file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.DataService.TimeoutSeconds == 0 {
		cfg.DataService.TimeoutSeconds = 30
	}
	if cfg.Refresh.DebounceMillis == 0 {
		cfg.Refresh.DebounceMillis = 100
	}
	if cfg.Refresh.ProcessingWindowSeconds == 0 {
		cfg.Refresh.ProcessingWindowSeconds = 30
	}
	if cfg.Refresh.PollIntervalSeconds == 0 {
		cfg.Refresh.PollIntervalSeconds = 2
	}
	if cfg.Refresh.PollMaxAttempts == 0 {
		cfg.Refresh.PollMaxAttempts = 30
	}
	if cfg.Scoring.HourlyRate == 0 {
		cfg.Scoring.HourlyRate = 25
	}
	if cfg.Scoring.FallbackCriticalPct == 0 && cfg.Scoring.FallbackReviewPct == 0 && cfg.Scoring.FallbackResolvedPct == 0 {
		cfg.Scoring.FallbackCriticalPct = 30
		cfg.Scoring.FallbackReviewPct = 55
		cfg.Scoring.FallbackResolvedPct = 15
	}
	if cfg.Storage.SnapshotTTLMinutes == 0 {
		cfg.Storage.SnapshotTTLMinutes = 60
	}
}

// LoadFromEnv loads configuration from the given file (if present) and then
// applies environment variable overrides. A .env file is honored when found.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env if present (ignore errors, it's optional)
	_ = godotenv.Load()

	var cfg *Config
	if _, err := os.Stat(path); err == nil {
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = &Config{}
		cfg.applyDefaults()
	}

	if v := os.Getenv("DATA_SERVICE_URL"); v != "" {
		cfg.DataService.BaseURL = v
	}
	if v := os.Getenv("DATA_SERVICE_API_KEY"); v != "" {
		cfg.DataService.APIKey = v
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}

	return cfg, nil
}
