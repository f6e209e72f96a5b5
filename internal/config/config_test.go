package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[storage]
backend = "postgres"

[postgres]
host = "db.internal"
port = 5433

[redis]
enabled = true
addr = "cache.internal:6379"

[archive]
interval = "12h"

[server]
port = 9090
rate_limit = 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 5433, cfg.Postgres.Port)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Server.RateLimit)
	assert.Equal(t, 12*time.Hour, cfg.Archive.Interval.Duration)

	// Untouched fields keep their defaults.
	assert.Equal(t, "mutuel", cfg.Postgres.Database)
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	assert.True(t, cfg.Server.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9090
`)

	t.Setenv("MUTUEL_SERVER_PORT", "7000")
	t.Setenv("MUTUEL_STORAGE_BACKEND", "postgres")
	t.Setenv("MUTUEL_POSTGRES_PASSWORD", "hunter2")
	t.Setenv("MUTUEL_SERVER_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("MUTUEL_ARCHIVE_INTERVAL", "30m")
	t.Setenv("MUTUEL_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Archive.Interval.Duration)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		cfg := Defaults()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("collects every problem", func(t *testing.T) {
		cfg := Defaults()
		cfg.Storage.Backend = "sqlite"
		cfg.LogLevel = "loud"
		cfg.Server.Port = 0

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown backend")
		assert.Contains(t, err.Error(), "log_level")
		assert.Contains(t, err.Error(), "port must be 1-65535")
	})

	t.Run("postgres backend needs connection details", func(t *testing.T) {
		cfg := Defaults()
		cfg.Storage.Backend = "postgres"
		cfg.Postgres.Host = ""
		cfg.Postgres.Database = ""

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres: host")
		assert.Contains(t, err.Error(), "postgres: database")
	})

	t.Run("dsn substitutes for host fields", func(t *testing.T) {
		cfg := Defaults()
		cfg.Storage.Backend = "postgres"
		cfg.Postgres.Host = ""
		cfg.Postgres.Database = ""
		cfg.Postgres.DSN = "postgres://u:p@db/mutuel"

		assert.NoError(t, cfg.Validate())
	})

	t.Run("rate limit requires redis", func(t *testing.T) {
		cfg := Defaults()
		cfg.Server.RateLimit = 10

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires redis.enabled")

		cfg.Redis.Enabled = true
		assert.NoError(t, cfg.Validate())
	})

	t.Run("archive requires s3 and postgres", func(t *testing.T) {
		cfg := Defaults()
		cfg.Archive.Enabled = true

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires s3.enabled")
		assert.Contains(t, err.Error(), "requires storage.backend")

		cfg.S3.Enabled = true
		cfg.Storage.Backend = "postgres"
		assert.NoError(t, cfg.Validate())
	})
}
