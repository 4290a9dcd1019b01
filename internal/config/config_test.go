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

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Worker.Count)
	assert.Equal(t, 10*time.Second, cfg.Feed.PollInterval)
	assert.Equal(t, "https://t.me", cfg.Feed.BaseURL)
	assert.Empty(t, cfg.Feed.Channels)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "o3-mini", cfg.Oracle.Model)
	assert.Equal(t, 50*time.Millisecond, cfg.Telegram.DeliveryPause)
	assert.Equal(t, 5*time.Second, cfg.Live.SnapshotInterval)
	assert.Equal(t, 24*time.Hour, cfg.Moderation.ReportTTL)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("FEED_CHANNELS", "chan_one, chan_two,,")
	t.Setenv("FEED_POLL_INTERVAL", "30s")
	t.Setenv("ADMIN_USER_IDS", "100,200")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"chan_one", "chan_two"}, cfg.Feed.Channels)
	assert.Equal(t, 30*time.Second, cfg.Feed.PollInterval)
	assert.Equal(t, []int64{100, 200}, cfg.Moderation.AdminUserIDs)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidAdminIDs(t *testing.T) {
	t.Setenv("ADMIN_USER_IDS", "100,abc")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_USER_IDS")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log level")
}

func TestLoad_PollIntervalTooShort(t *testing.T) {
	t.Setenv("FEED_POLL_INTERVAL", "100ms")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FEED_POLL_INTERVAL")
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "70000")
	_, err := Load()
	require.Error(t, err)
}
