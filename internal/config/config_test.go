package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SMARTCART_CONFIG", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, DefaultCartKey, cfg.Store.CartKey)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(1<<20), cfg.MaxRequestBodySize)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SMARTCART_CONFIG", "")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DB_PORT", "6543")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	assert.Equal(t, "https://api.example.com", cfg.Upstream.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 6543, cfg.Store.Postgres.Port)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartcart.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: production
http_port: "9090"
request_timeout: 12s
store:
  backend: sqlite
  sqlite_path: /var/lib/smartcart/cart.db
kafka:
  brokers: [broker:9092]
  topic: orders
`), 0o600))
	t.Setenv("SMARTCART_CONFIG", path)
	t.Setenv("HTTP_PORT", "9191")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "9191", cfg.HTTPPort, "env wins over file")
	assert.Equal(t, 12*time.Second, cfg.RequestTimeout)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/smartcart/cart.db", cfg.Store.SQLitePath)
	assert.Equal(t, DefaultCartKey, cfg.Store.CartKey, "unset keys keep defaults")
	assert.Equal(t, []string{"broker:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "orders", cfg.Kafka.Topic)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "etcd"}},
		{"bad duration", map[string]string{"REQUEST_TIMEOUT": "soon"}},
		{"bad port", map[string]string{"DB_PORT": "five"}},
		{"missing file", map[string]string{"SMARTCART_CONFIG": "/nonexistent/smartcart.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SMARTCART_CONFIG", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
