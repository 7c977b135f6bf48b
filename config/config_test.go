package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*24*time.Hour, cfg.Cart.SnapshotTTL)
	assert.Equal(t, "cart_session", cfg.Session.CookieName)
	assert.True(t, cfg.Cart.RefreshBeforeSubmit)
	assert.Equal(t, 4, cfg.Cart.RefreshConcurrency)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CART_SNAPSHOT_TTL", "48h")
	t.Setenv("CART_REFRESH_BEFORE_SUBMIT", "false")
	t.Setenv("CART_STORAGE_DRIVER", "postgres")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, cfg.Cart.SnapshotTTL)
	assert.False(t, cfg.Cart.RefreshBeforeSubmit)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestParseHelpers_FallBackOnGarbage(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseDuration("soon", 5*time.Second))
	assert.Equal(t, 7, parseInt("seven", 7))
	assert.True(t, parseBool("maybe", true))
	assert.Equal(t, []string{}, parseSlice(""))
	assert.Equal(t, []string{"a", "b"}, parseSlice("a,,b"))
}
