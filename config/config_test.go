package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/reabind/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reabind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, config.TransportTCP, cfg.Transport)
	assert.Equal(t, "127.0.0.1:2306", cfg.Address)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, config.DriverMemory, cfg.ExtState.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeFile(t, `
transport: redis
timeout: 2s
redis:
  addr: redis:6379
  db: 3
extstate:
  driver: sqlite
  dsn: file:ext.db
host:
  min_version: ">= 6.0"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.TransportRedis, cfg.Transport)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "reabind", cfg.Redis.Prefix)
	assert.Equal(t, "127.0.0.1:2306", cfg.Address)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "file:ext.db", cfg.ExtState.DSN)
	assert.Equal(t, ">= 6.0", cfg.Host.MinVersion)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "transport: [tcp"},
		{"unknown transport", "transport: carrier-pigeon"},
		{"sqlite without dsn", "extstate:\n  driver: sqlite"},
		{"unknown driver", "extstate:\n  driver: postgres"},
		{"zero timeout", "timeout: 0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("REABIND_TRANSPORT", "stdio")
	t.Setenv("REABIND_TIMEOUT", "750ms")
	t.Setenv("REABIND_REDIS_DB", "5")
	t.Setenv("REABIND_LOG_LEVEL", "debug")

	cfg := config.Default()
	require.NoError(t, config.FromEnv(cfg))

	assert.Equal(t, config.TransportStdio, cfg.Transport)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 5, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:2306", cfg.Address)
}

func TestFromEnvErrors(t *testing.T) {
	t.Setenv("REABIND_TIMEOUT", "soon")
	assert.Error(t, config.FromEnv(config.Default()))

	t.Setenv("REABIND_TIMEOUT", "")
	t.Setenv("REABIND_REDIS_DB", "zero")
	assert.Error(t, config.FromEnv(config.Default()))
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Host.MinVersion = "^7"
	data, err := cfg.Marshal()
	require.NoError(t, err)

	loaded, err := config.Load(writeFile(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
