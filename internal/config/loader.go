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
// built-in defaults, applies MUTUEL_* environment variable overrides, and
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

// applyEnvOverrides reads well-known MUTUEL_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Admin.Account, "MUTUEL_ADMIN_ACCOUNT")
	setStr(&cfg.Admin.TokenDigest, "MUTUEL_ADMIN_TOKEN_DIGEST")

	setStr(&cfg.Storage.Backend, "MUTUEL_STORAGE_BACKEND")

	setStr(&cfg.Postgres.DSN, "MUTUEL_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MUTUEL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MUTUEL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MUTUEL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MUTUEL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MUTUEL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MUTUEL_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MUTUEL_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MUTUEL_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MUTUEL_POSTGRES_RUN_MIGRATIONS")

	setBool(&cfg.Redis.Enabled, "MUTUEL_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MUTUEL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MUTUEL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MUTUEL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MUTUEL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MUTUEL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MUTUEL_REDIS_TLS_ENABLED")

	setBool(&cfg.S3.Enabled, "MUTUEL_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MUTUEL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MUTUEL_S3_REGION")
	setStr(&cfg.S3.Bucket, "MUTUEL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MUTUEL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MUTUEL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MUTUEL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MUTUEL_S3_FORCE_PATH_STYLE")

	setBool(&cfg.Archive.Enabled, "MUTUEL_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "MUTUEL_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.RetentionDays, "MUTUEL_ARCHIVE_RETENTION_DAYS")

	setBool(&cfg.Server.Enabled, "MUTUEL_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MUTUEL_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MUTUEL_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "MUTUEL_SERVER_RATE_LIMIT")

	setStr(&cfg.Notify.TelegramToken, "MUTUEL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MUTUEL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MUTUEL_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MUTUEL_NOTIFY_EVENTS")

	setStr(&cfg.LogLevel, "MUTUEL_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

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
