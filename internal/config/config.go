package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const (
	defaultDatabaseURL    = "task_manager.db"
	defaultRedisURL       = "redis://localhost:6379/0"
	defaultNamespace      = "taskApp"
	defaultReportInterval = 5 * time.Hour
	defaultDueSoonDays    = 3
	defaultLogLevel       = "info"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken  string
	StorageBackend string
	DatabaseURL    string
	RedisURL       string
	Namespace      string
	ReportInterval time.Duration
	// ReportTime is an optional HH:MM for a daily report on top of the interval.
	ReportTime  string
	DueSoonDays int
	LogLevel    string
}

// fileConfig is the YAML overlay read from CONFIG_FILE.
type fileConfig struct {
	TelegramToken       string `yaml:"telegram_token"`
	StorageBackend      string `yaml:"storage_backend"`
	DatabaseURL         string `yaml:"database_url"`
	RedisURL            string `yaml:"redis_url"`
	Namespace           string `yaml:"storage_namespace"`
	ReportIntervalHours int    `yaml:"report_interval_hours"`
	ReportTime          string `yaml:"report_time"`
	DueSoonDays         int    `yaml:"due_soon_days"`
	LogLevel            string `yaml:"log_level"`
	Debug               bool   `yaml:"debug"`
}

// Load reads configuration from an optional YAML file named by CONFIG_FILE, then
// from environment variables, which win. Missing values get sane defaults.
func Load() (Config, error) {
	var file fileConfig
	if path := env("CONFIG_FILE"); path != "" {
		f, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		file = f
	}

	cfg := Config{
		TelegramToken:  first(env("TELEGRAM_TOKEN"), file.TelegramToken),
		StorageBackend: strings.ToLower(first(env("STORAGE_BACKEND"), file.StorageBackend, BackendSQLite)),
		DatabaseURL:    first(env("DATABASE_URL"), file.DatabaseURL, defaultDatabaseURL),
		RedisURL:       first(env("REDIS_URL"), file.RedisURL, defaultRedisURL),
		Namespace:      first(env("STORAGE_NAMESPACE"), file.Namespace, defaultNamespace),
		ReportTime:     first(env("REPORT_TIME"), file.ReportTime),
		LogLevel:       strings.ToLower(first(env("LOG_LEVEL"), file.LogLevel, defaultLogLevel)),
	}

	cfg.ReportInterval = parseInterval(env("REPORT_INTERVAL_HOURS"))
	if cfg.ReportInterval == 0 && file.ReportIntervalHours > 0 {
		cfg.ReportInterval = time.Duration(file.ReportIntervalHours) * time.Hour
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = defaultReportInterval
	}

	cfg.DueSoonDays = parsePositive(env("DUE_SOON_DAYS"))
	if cfg.DueSoonDays == 0 {
		cfg.DueSoonDays = file.DueSoonDays
	}
	if cfg.DueSoonDays <= 0 {
		cfg.DueSoonDays = defaultDueSoonDays
	}

	if debug, err := strconv.ParseBool(env("DEBUG")); (err == nil && debug) || (err != nil && file.Debug) {
		cfg.LogLevel = "debug"
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	switch c.StorageBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.ReportTime != "" {
		if _, err := time.Parse("15:04", c.ReportTime); err != nil {
			return fmt.Errorf("REPORT_TIME must be HH:MM, got %q", c.ReportTime)
		}
	}
	return nil
}

func readFile(path string) (fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return f, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func first(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func parsePositive(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
