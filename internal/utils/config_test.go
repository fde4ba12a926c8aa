package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Setup
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  listen_addr: ":9090"
database:
  path: /var/lib/signage/hub.db
mqtt:
  enabled: true
  broker: tcp://broker:1883
services:
  heartbeat:
    enabled: true
    interval: 5s
  health:
    enabled: true
    offline_threshold: 2m
    min_player_version: 1.8.0
  schedule:
    enabled: true
    timezone: Europe/Madrid
logging:
  debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	// Execute
	config, err := LoadConfig(path, file.NewFileService())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, ":9090", config.Server.ListenAddr)
	assert.Equal(t, constants.DefaultWebsocketPath, config.Server.WebsocketPath)
	assert.Equal(t, "/var/lib/signage/hub.db", config.Database.Path)
	assert.True(t, config.MQTT.Enabled)
	assert.Equal(t, constants.DefaultTopicPrefix, config.MQTT.TopicPrefix)

	assert.Equal(t, 5*time.Second, config.Services.Heartbeat.Interval)
	assert.Equal(t, constants.DefaultHeartbeatTimeout, config.Services.Heartbeat.Timeout)
	assert.Equal(t, 2*time.Minute, config.Services.Health.OfflineThreshold)
	assert.Equal(t, constants.DefaultReconnectAttempts, config.Services.Health.ReconnectAttempts)
	assert.Equal(t, "1.8.0", config.Services.Health.MinPlayerVersion)
	assert.Equal(t, "Europe/Madrid", config.Services.Schedule.Timezone)
	assert.Equal(t, constants.DefaultScheduleInterval, config.Services.Schedule.Interval)
	assert.Equal(t, constants.DefaultAlertHistoryLimit, config.Alerts.HistoryLimit)
	assert.True(t, config.Logging.Debug)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), file.NewFileService())
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	var config Config
	config.ApplyDefaults()

	assert.Equal(t, constants.DefaultListenAddr, config.Server.ListenAddr)
	assert.Equal(t, int64(constants.DefaultReadLimit), config.Server.ReadLimit)
	assert.Equal(t, constants.DefaultSweepInterval, config.Services.Heartbeat.Interval)
	assert.Equal(t, constants.DefaultHealthInterval, config.Services.Health.Interval)
	assert.Equal(t, constants.DefaultRetryDelay, config.Services.Health.RetryDelay)
	assert.InDelta(t, 0.9, config.Services.Health.StorageThreshold, 1e-9)
	assert.Equal(t, constants.DefaultMetricRetention, config.Alerts.MetricRetention)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestSliceToSet(t *testing.T) {
	set := SliceToSet([]string{"mon", "wed", "mon"})
	assert.Len(t, set, 2)
	assert.Contains(t, set, "wed")
}
