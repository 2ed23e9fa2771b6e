package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeTOML(t, `
mode = "serve"
log_level = "debug"

[database]
host = "db.internal"
password = "hunter2"

[server]
port = 9090
rate_window = "30s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RateWindow.Duration)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.Database.PoolMaxConns)
	assert.Equal(t, 90*24*time.Hour, cfg.Archive.Retention.Duration)

	require.NoError(t, cfg.Validate())
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeTOML(t, `
[redis]
addr = "file-redis:6379"
`)

	t.Setenv("TRADINGPOST_REDIS_ADDR", "env-redis:6380")
	t.Setenv("TRADINGPOST_DATABASE_RUN_MIGRATIONS", "false")
	t.Setenv("TRADINGPOST_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TRADINGPOST_ARCHIVE_RETENTION", "48h")
	t.Setenv("TRADINGPOST_MODE", "archive")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-redis:6380", cfg.Redis.Addr)
	assert.False(t, cfg.Database.RunMigrations)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 48*time.Hour, cfg.Archive.Retention.Duration)
	assert.Equal(t, "archive", cfg.Mode)
}

func TestEnvOverrideIgnoresMalformedValues(t *testing.T) {
	path := writeTOML(t, "")

	t.Setenv("TRADINGPOST_SERVER_PORT", "not-a-number")
	t.Setenv("TRADINGPOST_SERVER_RATE_WINDOW", "soon")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Server.RateWindow.Duration)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replay"
	cfg.Database.PoolMinConns = 50
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "pool_min_conns must not exceed pool_max_conns")
	assert.Contains(t, err.Error(), "redis: addr must not be empty")
}

func TestValidateArchiveModeNeedsS3(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"
	cfg.S3.Bucket = ""
	cfg.Archive.Retention.Duration = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: bucket must not be empty")
	assert.Contains(t, err.Error(), "archive: retention must be > 0")
}
