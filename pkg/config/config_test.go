package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "ai_lab_", cfg.Storage.KeyPrefix)
	assert.Equal(t, 600*time.Millisecond, cfg.Session.LoginDelay)
	assert.Equal(t, 0.0001, cfg.Pricing.CostPer1KInput)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: redis
  redis:
    addr: cache:6379
openai:
  model: gpt-custom
session:
  login_delay: 10ms
`), 0o600))
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TELEGRAM_TOKEN", "tg-test")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "cache:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, "gpt-custom", cfg.OpenAI.Model)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "tg-test", cfg.Telegram.Token)
	assert.Equal(t, 10*time.Millisecond, cfg.Session.LoginDelay)
}

func TestLoadConfig_DatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://lab:pw@db.internal:5433/prompts?sslmode=require")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, DatabaseConfig{Host: "db.internal", Port: 5433, User: "lab", Password: "pw", DBName: "prompts", SSLMode: "require"}, cfg.Storage.Postgres)
}

func TestParseRedisURL(t *testing.T) {
	rc, err := parseRedisURL("redis://:secret@localhost:6380/2")
	require.NoError(t, err)
	assert.Equal(t, RedisConfig{Addr: "localhost:6380", Password: "secret", DB: 2}, rc)

	_, err = parseRedisURL("redis://localhost/x")
	assert.Error(t, err)
}

func TestLoadConfig_UnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")

	_, err := LoadConfig("")
	assert.Error(t, err)
}
