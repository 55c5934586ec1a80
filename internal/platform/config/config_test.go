package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"PAWNSHOP_ADDR", "STORE_BACKEND", "DATABASE_URL", "DATABASE_DRIVER",
		"JWT_SIGNING_KEY", "REDIS_URL", "KAFKA_BROKERS", "LOG_LEVEL", "METRICS_ENABLED",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.Store)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Auth.JWTSigningKey)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.MetricsEnabled)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PAWNSHOP_ADDR", ":9090")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "7")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("REDIS_DIAL_TIMEOUT", "250ms")
	t.Setenv("HTTP_WRITE_TIMEOUT", "2s")
	t.Setenv("HTTP_SHUTDOWN_TIMEOUT", "nonsense")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, BackendPostgres, cfg.Store)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 7, cfg.Database.MaxOpenConns)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.DialTimeout)
	assert.Equal(t, 2*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout, "unparseable durations keep the default")
}

func TestUnknownBackendFallsBackToMemory(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	assert.Equal(t, BackendMemory, FromEnv().Store)
}
