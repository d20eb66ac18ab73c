// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github-trending-archive/internal/logging"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Source    SourceConfig    `mapstructure:"source"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Logging   logging.Config  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SourceConfig governs fetching of the trending page.
type SourceConfig struct {
	URL            string `mapstructure:"url"`
	UserAgent      string `mapstructure:"user_agent"`
	AcceptLanguage string `mapstructure:"accept_language"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	JitterMinMs    int    `mapstructure:"jitter_min_ms"`
	JitterMaxMs    int    `mapstructure:"jitter_max_ms"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
}

// GitHubConfig controls topic enrichment via the GitHub API.
type GitHubConfig struct {
	Token     string `mapstructure:"token"`
	BatchSize int    `mapstructure:"batch_size"`
}

// DBConfig controls access to the archive database.
type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxConns           int    `mapstructure:"max_conns"`
	MinConns           int    `mapstructure:"min_conns"`
	MaxConnLifetimeMin int    `mapstructure:"max_conn_lifetime_minutes"`
}

// RedisConfig locates the retry counter store.
type RedisConfig struct {
	URL  string `mapstructure:"url"`
	Addr string `mapstructure:"addr"`
}

// RetryConfig bounds per-day retry attempts.
type RetryConfig struct {
	MaxAttempts     int `mapstructure:"max_attempts"`
	CounterTTLHours int `mapstructure:"counter_ttl_hours"`
}

// AnalyticsConfig bounds read-side history scans.
type AnalyticsConfig struct {
	StreakLookbackDays  int `mapstructure:"streak_lookback_days"`
	HistoryLookbackDays int `mapstructure:"history_lookback_days"`
}

// SnapshotsConfig controls raw HTML snapshot persistence.
type SnapshotsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseDir string `mapstructure:"base_dir"`
}

// NotifyConfig holds the operational webhook sink.
type NotifyConfig struct {
	WebhookURL     string `mapstructure:"webhook_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ScheduleConfig controls the background scrape loop.
type ScheduleConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRENDING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("source.url", "https://github.com/trending")
	v.SetDefault("source.user_agent", "trending-archive-bot/0.1")
	v.SetDefault("source.accept_language", "en-US,en;q=0.9")
	v.SetDefault("source.timeout_seconds", 30)
	v.SetDefault("source.jitter_min_ms", 250)
	v.SetDefault("source.jitter_max_ms", 1500)
	v.SetDefault("source.respect_robots", true)
	v.SetDefault("github.batch_size", 4)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("retry.max_attempts", 2)
	v.SetDefault("retry.counter_ttl_hours", 48)
	v.SetDefault("analytics.streak_lookback_days", 60)
	v.SetDefault("analytics.history_lookback_days", 365)
	v.SetDefault("snapshots.enabled", false)
	v.SetDefault("snapshots.base_dir", "snapshots")
	v.SetDefault("notify.timeout_seconds", 10)
	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.interval_minutes", 360)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Source.URL == "" {
		return fmt.Errorf("source.url must be set")
	}
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	if c.Source.JitterMinMs < 0 || c.Source.JitterMaxMs < c.Source.JitterMinMs {
		return fmt.Errorf("source jitter bounds must satisfy 0 <= min <= max")
	}
	if c.GitHub.BatchSize <= 0 {
		return fmt.Errorf("github.batch_size must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Retry.CounterTTLHours <= 0 {
		return fmt.Errorf("retry.counter_ttl_hours must be > 0")
	}
	if c.Analytics.StreakLookbackDays <= 0 || c.Analytics.HistoryLookbackDays <= 0 {
		return fmt.Errorf("analytics lookback windows must be > 0")
	}
	if c.Snapshots.Enabled && c.Snapshots.BaseDir == "" {
		return fmt.Errorf("snapshots.base_dir must be set when snapshots are enabled")
	}
	if c.Schedule.Enabled && c.Schedule.IntervalMinutes <= 0 {
		return fmt.Errorf("schedule.interval_minutes must be > 0 when the schedule is enabled")
	}
	return nil
}

// SourceTimeout converts the fetch timeout into a duration.
func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// JitterBounds converts the jitter config into durations.
func (c Config) JitterBounds() (time.Duration, time.Duration) {
	return time.Duration(c.Source.JitterMinMs) * time.Millisecond,
		time.Duration(c.Source.JitterMaxMs) * time.Millisecond
}

// CounterTTL converts the retry counter TTL into a duration.
func (c Config) CounterTTL() time.Duration {
	return time.Duration(c.Retry.CounterTTLHours) * time.Hour
}

// ScrapeInterval converts the schedule config into a duration.
func (c Config) ScrapeInterval() time.Duration {
	return time.Duration(c.Schedule.IntervalMinutes) * time.Minute
}
