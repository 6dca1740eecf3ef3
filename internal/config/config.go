package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration resolved from the environment.
type Config struct {
	Port string

	StoreDriver   string
	DBPath        string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SnapshotKey   string

	ScanThreshold   time.Duration
	SessionIdle     time.Duration
	LookbackWindow  int
	DefaultCarrier  string
	StatusTablePath string

	LogLevel  string
	LogFormat string
	AlertBell bool

	// Warnings lists values that failed to parse and fell back to defaults.
	Warnings []string
}

// Load reads the configuration from environment variables. Call
// godotenv.Load first if a .env file should contribute.
func Load() Config {
	cfg := Config{
		Port:            Get("PORT", "8080"),
		StoreDriver:     strings.ToLower(Get("STORE_DRIVER", "sqlite")),
		DBPath:          Get("DB_PATH", "data/audit.db"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       Get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		SnapshotKey:     Get("SNAPSHOT_KEY", "routes.v1"),
		DefaultCarrier:  os.Getenv("DEFAULT_CARRIER"),
		StatusTablePath: os.Getenv("STATUS_TABLE_PATH"),
		LogLevel:        Get("LOG_LEVEL", "info"),
		LogFormat:       Get("LOG_FORMAT", "json"),
	}

	cfg.RedisDB = cfg.intVar("REDIS_DB", 0)
	cfg.ScanThreshold = cfg.durationVar("SCAN_THRESHOLD", 60*time.Millisecond)
	cfg.SessionIdle = cfg.durationVar("SESSION_IDLE", 10*time.Minute)
	cfg.LookbackWindow = cfg.intVar("LOOKBACK_WINDOW", 12000)
	cfg.AlertBell = cfg.boolVar("ALERT_BELL", true)

	return cfg
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (c *Config) intVar(key string, fallback int) int {
	raw := Get(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.warn(key, raw)
		return fallback
	}
	return n
}

// durationVar accepts Go durations ("75ms") or bare milliseconds ("75").
func (c *Config) durationVar(key string, fallback time.Duration) time.Duration {
	raw := Get(key, "")
	if raw == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		c.warn(key, raw)
		return fallback
	}
	return d
}

func (c *Config) boolVar(key string, fallback bool) bool {
	raw := Get(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		c.warn(key, raw)
		return fallback
	}
	return b
}

func (c *Config) warn(key, raw string) {
	c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s=%q, using default", key, raw))
}
