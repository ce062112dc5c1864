package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("STORAGE", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("LOCK_BACKEND", "")
	t.Setenv("LOCK_TIMEOUT", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, LockLocal, cfg.Lock.Backend)
	assert.Equal(t, 5*time.Second, cfg.Lock.Timeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("STORAGE", "Postgres")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("POSTGRES_DB", "skyseat")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("LOCK_TIMEOUT", "1500ms")
	t.Setenv("SUBSCRIBE_TIMEOUT", "10")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage.Backend)
	assert.Equal(t, "skyseat", cfg.Postgres.Name)
	assert.Equal(t, LockRedis, cfg.Lock.Backend)
	assert.Equal(t, 1500*time.Millisecond, cfg.Lock.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Subscription.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad storage", map[string]string{"STORAGE": "sqlite"}},
		{"postgres without user", map[string]string{"STORAGE": "postgres", "POSTGRES_USER": ""}},
		{"redis lock without redis", map[string]string{"LOCK_BACKEND": "redis", "REDIS_ADDR": ""}},
		{"bad lock timeout", map[string]string{"LOCK_TIMEOUT": "soon"}},
		{"zero lock timeout", map[string]string{"LOCK_TIMEOUT": "0"}},
		{"bad port", map[string]string{"SERVER_PORT": "http"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.Error(t, err)
		})
	}
}
