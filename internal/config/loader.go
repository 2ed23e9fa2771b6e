package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TRADINGPOST_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TRADINGPOST_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "TRADINGPOST_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "TRADINGPOST_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "TRADINGPOST_DATABASE_HOST")
	setInt(&cfg.Database.Port, "TRADINGPOST_DATABASE_PORT")
	setStr(&cfg.Database.Database, "TRADINGPOST_DATABASE_NAME")
	setStr(&cfg.Database.User, "TRADINGPOST_DATABASE_USER")
	setStr(&cfg.Database.Password, "TRADINGPOST_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "TRADINGPOST_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "TRADINGPOST_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "TRADINGPOST_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "TRADINGPOST_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "TRADINGPOST_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRADINGPOST_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRADINGPOST_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRADINGPOST_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRADINGPOST_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRADINGPOST_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "TRADINGPOST_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRADINGPOST_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRADINGPOST_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRADINGPOST_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRADINGPOST_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRADINGPOST_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRADINGPOST_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "TRADINGPOST_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TRADINGPOST_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TRADINGPOST_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "TRADINGPOST_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "TRADINGPOST_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "TRADINGPOST_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TRADINGPOST_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TRADINGPOST_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TRADINGPOST_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TRADINGPOST_NOTIFY_EVENTS")

	// ── Archive ──
	setDuration(&cfg.Archive.Retention, "TRADINGPOST_ARCHIVE_RETENTION")

	// ── Top-level ──
	setStr(&cfg.Mode, "TRADINGPOST_MODE")
	setStr(&cfg.LogLevel, "TRADINGPOST_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
