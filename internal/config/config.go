// Package config contains everything related to configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath    string
	HistoryPath     string
	SettingsPath    string
	LogPath         string
	LogLevel        string
	RollupSchedule  string
	MetricsAddr     string
	RefreshInterval time.Duration

	// Trend series tuning.
	ResetDropPct  int
	HistoryMaxAge time.Duration

	// Sample log and daily stats retention.
	LimitHitPct        int
	SampleRetention    time.Duration
	DailyRetentionDays int

	// Burn-rate regression tuning.
	BurnWindow time.Duration
	MinSpan    time.Duration
	HalfLife   time.Duration
}

// Default values
const (
	defaultRefreshInterval    = 5 * time.Minute
	minRefreshInterval        = time.Minute
	maxRefreshInterval        = 15 * time.Minute
	defaultRollupSchedule     = "@hourly"
	defaultResetDropPct       = 30
	defaultHistoryMaxAge      = 24 * time.Hour
	defaultLimitHitPct        = 95
	defaultSampleRetention    = 7 * 24 * time.Hour
	defaultDailyRetentionDays = 90
	defaultBurnWindow         = 30 * time.Minute
	defaultMinSpan            = 5 * time.Minute
	defaultHalfLife           = 10 * time.Minute
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		DatabasePath:    getEnvString("AQB_DATABASE_PATH", defaultPath("history.db")),
		HistoryPath:     getEnvString("AQB_HISTORY_PATH", defaultPath("history.json")),
		SettingsPath:    getEnvString("AQB_SETTINGS_PATH", defaultPath("settings.yaml")),
		LogPath:         getEnvString("AQB_LOG_PATH", defaultPath("aqb.log")),
		LogLevel:        getEnvString("AQB_LOG_LEVEL", "info"),
		RollupSchedule:  getEnvString("AQB_ROLLUP_SCHEDULE", defaultRollupSchedule),
		MetricsAddr:     getEnvString("AQB_METRICS_ADDR", ""),
		RefreshInterval: clampDuration(getEnvDuration("AQB_REFRESH_INTERVAL", defaultRefreshInterval), minRefreshInterval, maxRefreshInterval),

		ResetDropPct:  getEnvInt("AQB_RESET_DROP_PCT", defaultResetDropPct),
		HistoryMaxAge: getEnvDuration("AQB_HISTORY_MAX_AGE", defaultHistoryMaxAge),

		LimitHitPct:        getEnvInt("AQB_LIMIT_HIT_PCT", defaultLimitHitPct),
		SampleRetention:    getEnvDuration("AQB_SAMPLE_RETENTION", defaultSampleRetention),
		DailyRetentionDays: getEnvInt("AQB_DAILY_RETENTION_DAYS", defaultDailyRetentionDays),

		BurnWindow: getEnvDuration("AQB_BURN_WINDOW", defaultBurnWindow),
		MinSpan:    getEnvDuration("AQB_MIN_SPAN", defaultMinSpan),
		HalfLife:   getEnvDuration("AQB_HALF_LIFE", defaultHalfLife),
	}

	for _, p := range []string{cfg.DatabasePath, cfg.HistoryPath, cfg.SettingsPath} {
		if err := ensureDir(filepath.Dir(p)); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "aqb", ".env"),
			filepath.Join(home, ".aqb", ".env"),
		)
	}

	return paths
}

// defaultPath returns name inside the per-user config directory.
func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", "aqb", name)
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	return min(max(d, lo), hi)
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
