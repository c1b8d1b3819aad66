package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMySQL, cfg.DB.Driver)
	assert.Equal(t, BrokerNone, cfg.Events.Broker)
	assert.Equal(t, 3, cfg.Booking.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Events.PollInterval)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.KafkaBrokers)
	assert.True(t, cfg.Cache.Methods["GET"])
	assert.Equal(t, "logs", cfg.Log.Dir)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_DSN", ":memory:")
	t.Setenv("EVENTS_BROKER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("BOOKING_MAX_ATTEMPTS", "5")
	t.Setenv("CACHE_METHODS", "get, head")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, ":memory:", cfg.DB.DSN)
	assert.Equal(t, BrokerKafka, cfg.Events.Broker)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 5, cfg.Booking.MaxAttempts)
	assert.True(t, cfg.Cache.Methods["HEAD"])
}

func TestLoad_ClampsBookingAttempts(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	t.Setenv("BOOKING_MAX_ATTEMPTS", "500")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MaxBookingAttempts, cfg.Booking.MaxAttempts)

	t.Setenv("BOOKING_MAX_ATTEMPTS", "0")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Booking.MaxAttempts)
}

func TestLoad_RejectsEmptySecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestRateLimitNormalize(t *testing.T) {
	rl := RateLimitConfig{Capacity: 0, RefillTokens: 0, Burst: 10, RefillEvery: 2 * time.Second}
	rl.normalize()

	assert.Equal(t, 10, rl.Capacity)
	assert.Equal(t, 1, rl.RefillTokens)
	assert.Equal(t, 2*time.Second, rl.RefillInterval)
	assert.Equal(t, 10*time.Second, rl.TTL, "TTL is raised to five refill intervals")
}

func TestRedisAddress(t *testing.T) {
	assert.Equal(t, "cache:6380", Redis{Host: "cache", Port: "6380", Addr: "x:1"}.Address())
	assert.Equal(t, "x:1", Redis{Addr: "x:1"}.Address())
	assert.Equal(t, "localhost:6379", Redis{}.Address())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Log{Level: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Log{Level: "warning"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Log{Level: "bogus"}.SlogLevel())
}
