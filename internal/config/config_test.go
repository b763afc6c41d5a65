package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEALSPLIT_AUTH_JWT_SECRET", testSecret)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./data/mealsplit.db", cfg.Database.SQLitePath)
	assert.Equal(t, 4*time.Hour, cfg.Splits.ConflictWindow)
	assert.Equal(t, 10*time.Second, cfg.Redis.LeaseTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MEALSPLIT_AUTH_JWT_SECRET", testSecret)
	t.Setenv("MEALSPLIT_DATABASE_DRIVER", "postgres")
	t.Setenv("MEALSPLIT_DATABASE_POSTGRES_DSN", "postgres://localhost/mealsplit")
	t.Setenv("MEALSPLIT_SPLITS_CONFLICT_WINDOW", "90m")
	t.Setenv("MEALSPLIT_REDIS_ADDR", "localhost:6379")
	t.Setenv("MEALSPLIT_LOGGING_LEVEL", "DEBUG")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/mealsplit", cfg.Database.PostgresDSN)
	assert.Equal(t, 90*time.Minute, cfg.Splits.ConflictWindow)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  rate_limit: 10
auth:
  jwt_secret: "file-secret-0123456789"
nats:
  url: "nats://localhost:4222"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Server.RateLimit)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, time.Minute, cfg.Server.RateWindow)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("MEALSPLIT_AUTH_JWT_SECRET", testSecret)
		t.Setenv("MEALSPLIT_DATABASE_DRIVER", "postgres")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("MEALSPLIT_AUTH_JWT_SECRET", testSecret)
		t.Setenv("MEALSPLIT_DATABASE_DRIVER", "mysql")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("MEALSPLIT_AUTH_JWT_SECRET", testSecret)
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadLogLevelAliases(t *testing.T) {
	t.Setenv("MEALSPLIT_AUTH_JWT_SECRET", testSecret)
	t.Setenv("MEALSPLIT_LOGGING_LEVEL", "Warning")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warning", cfg.Logging.Level)
}
