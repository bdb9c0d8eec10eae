package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultBaseURL, cfg.Lookup.BaseURL)
	assert.Equal(t, 2, cfg.Lookup.Retries)
	assert.Equal(t, 10*time.Second, cfg.Lookup.Timeout)
	assert.Equal(t, time.Second, cfg.Lookup.RetryDelay)
	assert.Equal(t, 1, cfg.Batch.Workers)
	assert.Equal(t, 300*time.Millisecond, cfg.Batch.Pace)
	assert.Equal(t, CacheNone, cfg.Cache.Driver)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devicelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
lookup:
  retries: 4
  retry_delay: 250ms
batch:
  workers: 3
  pace: 0s
cache:
  driver: sqlite
  sqlite_path: /tmp/cache.db
publish:
  brokers: ["localhost:9092"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Lookup.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.Lookup.RetryDelay)
	assert.Equal(t, 3, cfg.Batch.Workers)
	assert.Zero(t, cfg.Batch.Pace)
	assert.Equal(t, CacheSQLite, cfg.Cache.Driver)
	assert.Equal(t, "/tmp/cache.db", cfg.Cache.SQLitePath)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Publish.Brokers)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Second, cfg.Lookup.Timeout)
	assert.Equal(t, "devicelink.outcomes", cfg.Publish.Topic)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		cfg := Default()
		err := cfg.applyEnv(envFrom(map[string]string{
			"DEVICELINK_LOOKUP_RETRIES":    "0",
			"DEVICELINK_LOOKUP_TIMEOUT":    "2s",
			"DEVICELINK_BATCH_WORKERS":     "8",
			"DEVICELINK_CACHE_DRIVER":      "redis",
			"DEVICELINK_CACHE_REDIS_URL":   "redis://localhost:6379/0",
			"DEVICELINK_PUBLISH_BROKERS":   "a:9092, b:9092,",
			"DEVICELINK_UPLOAD_PATH_STYLE": "TRUE",
		}))
		require.NoError(t, err)

		assert.Equal(t, 0, cfg.Lookup.Retries)
		assert.Equal(t, 2*time.Second, cfg.Lookup.Timeout)
		assert.Equal(t, 8, cfg.Batch.Workers)
		assert.Equal(t, CacheRedis, cfg.Cache.Driver)
		assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.Redis.URL)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Publish.Brokers)
		assert.True(t, cfg.Upload.PathStyle)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("reports malformed values", func(t *testing.T) {
		cfg := Default()
		err := cfg.applyEnv(envFrom(map[string]string{
			"DEVICELINK_LOOKUP_RETRIES": "two",
			"DEVICELINK_BATCH_PACE":     "soon",
		}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DEVICELINK_LOOKUP_RETRIES")
		assert.Contains(t, err.Error(), "DEVICELINK_BATCH_PACE")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative retries", func(c *Config) { c.Lookup.Retries = -1 }, "lookup.retries"},
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }, "batch.workers"},
		{"zero timeout", func(c *Config) { c.Lookup.Timeout = 0 }, "lookup.timeout"},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "memcached" }, "unknown cache driver"},
		{"postgres without dsn", func(c *Config) { c.Cache.Driver = CachePostgres }, "postgres_dsn"},
		{"redis without url", func(c *Config) { c.Cache.Driver = CacheRedis }, "redis.url"},
		{"brokers without topic", func(c *Config) {
			c.Publish.Brokers = []string{"k:9092"}
			c.Publish.Topic = ""
		}, "publish.topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
