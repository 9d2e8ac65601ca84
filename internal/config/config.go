// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// RedisConfig holds the optional member-cache settings. The bot runs
// without a cache when Addr is empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // member-set expiry (default: 24h)
}

// Enabled returns true when a cache backend is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Config holds the configuration for the bot, its store, and the ops API.
type Config struct {
	BotToken     string // Telegram bot token (required)
	DBPath       string // path to the SQLite file (default "tallybot.sqlite")
	ListenAddr   string // ops API listen address (default ":8080")
	LogLevel     string // log level: debug, info, warn, error (default "info")
	SuperAdminID int64  // bootstrap super admin user id (optional)

	// Schedules use robfig/cron syntax, @every included.
	SyncSchedule  string // member reconciliation (default "@every 6h")
	SweepSchedule string // potential-admin expiry sweep (default "@every 1h")

	// Telegram API rate limiting
	TelegramRPS   float64 // sustained requests per second (default 25)
	TelegramBurst int     // burst capacity (default 25)

	// ReadMaxOpen caps the read-side SQLite pool (default 4).
	ReadMaxOpen int

	Redis RedisConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		BotToken:      os.Getenv("BOT_TOKEN"),
		DBPath:        os.Getenv("DB_PATH"),
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		SyncSchedule:  os.Getenv("SYNC_CRON"),
		SweepSchedule: os.Getenv("SWEEP_CRON"),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	if v := os.Getenv("SUPER_ADMIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("SUPER_ADMIN_ID must be a numeric user id: %w", err)
		}
		cfg.SuperAdminID = id
	}

	if v := os.Getenv("TELEGRAM_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.TelegramRPS = f
		}
	}
	if v := os.Getenv("TELEGRAM_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TelegramBurst = n
		}
	}
	if v := os.Getenv("READ_MAX_OPEN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ReadMaxOpen = n
		}
	}

	cfg.Redis = RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("REDIS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Redis.TTL = d
		}
	}

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "tallybot.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SyncSchedule == "" {
		cfg.SyncSchedule = "@every 6h"
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "@every 1h"
	}
	if cfg.TelegramRPS == 0 {
		cfg.TelegramRPS = 25
	}
	if cfg.TelegramBurst == 0 {
		cfg.TelegramBurst = 25
	}
	if cfg.ReadMaxOpen == 0 {
		cfg.ReadMaxOpen = 4
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 24 * time.Hour
	}

	if cfg.SuperAdminID == 0 {
		cfg.Warnings = append(cfg.Warnings, "SUPER_ADMIN_ID not set — admin commands will be unusable until one is bootstrapped")
	}
	if !cfg.Redis.Enabled() {
		cfg.Warnings = append(cfg.Warnings, "REDIS_ADDR not set — running without a member cache")
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
