package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_PATH", "/tmp/test.sqlite")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SUPER_ADMIN_ID", "424242")
	t.Setenv("SYNC_CRON", "@every 1h")
	t.Setenv("SWEEP_CRON", "@every 30m")
	t.Setenv("TELEGRAM_RPS", "10")
	t.Setenv("TELEGRAM_BURST", "5")
	t.Setenv("READ_MAX_OPEN", "8")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_TTL", "12h")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, "/tmp/test.sqlite", cfg.DBPath)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, int64(424242), cfg.SuperAdminID)
	assert.Equal(t, "@every 1h", cfg.SyncSchedule)
	assert.Equal(t, "@every 30m", cfg.SweepSchedule)
	assert.Equal(t, 10.0, cfg.TelegramRPS)
	assert.Equal(t, 5, cfg.TelegramBurst)
	assert.Equal(t, 8, cfg.ReadMaxOpen)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 12*time.Hour, cfg.Redis.TTL)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_PATH", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SUPER_ADMIN_ID", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "tallybot.sqlite", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "@every 6h", cfg.SyncSchedule)
	assert.Equal(t, "@every 1h", cfg.SweepSchedule)
	assert.Equal(t, 25.0, cfg.TelegramRPS)
	assert.Equal(t, 4, cfg.ReadMaxOpen)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Len(t, cfg.Warnings, 2)
}

func TestLoadFromEnv_MissingBotToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestLoadFromEnv_BadSuperAdminID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SUPER_ADMIN_ID", "not-a-number")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPER_ADMIN_ID")
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), "LogLevel=%q", in)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nBOT_TOKEN=456:def\nDB_PATH=\"/data/bot.sqlite\"\nBROKEN LINE\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("BOT_TOKEN", "")
	t.Setenv("DB_PATH", "")
	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "456:def", os.Getenv("BOT_TOKEN"))
	assert.Equal(t, "/data/bot.sqlite", os.Getenv("DB_PATH"))
}

func TestLoadDotEnv_EnvVarsTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BOT_TOKEN=from-file\n"), 0o600))

	t.Setenv("BOT_TOKEN", "from-env")
	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "from-env", os.Getenv("BOT_TOKEN"))
}

func TestLoadDotEnv_MissingFileIsNotAnError(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}
