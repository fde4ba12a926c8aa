package utils

import (
	"time"

	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/pkg/file"
)

// ServerConfig configures the HTTP listener and the device websocket.
type ServerConfig struct {
	ListenAddr        string        `yaml:"listen_addr"`         // Address of the HTTP listener
	WebsocketPath     string        `yaml:"websocket_path"`      // Path devices connect to
	ReadLimit         int64         `yaml:"read_limit"`          // Maximum inbound message size in bytes
	WriteTimeout      time.Duration `yaml:"write_timeout"`       // Deadline for a single frame write
	OutboundQueueSize int           `yaml:"outbound_queue_size"` // Frames buffered per connection
	InboundRate       float64       `yaml:"inbound_rate"`        // Messages per second allowed per connection
	InboundBurst      int           `yaml:"inbound_burst"`       // Burst allowed above InboundRate
}

// DatabaseConfig configures the sqlite entity store.
type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to the sqlite database file
}

// MQTTConfig configures the event channel.
type MQTTConfig struct {
	Enabled        bool          `yaml:"enabled"`         // Publish events over MQTT instead of the log
	Broker         string        `yaml:"broker"`          // MQTT broker address
	ClientID       string        `yaml:"client_id"`       // MQTT client ID prefix
	CACertificate  string        `yaml:"ca_certificate"`  // Path to the CA certificate
	TopicPrefix    string        `yaml:"topic_prefix"`    // Prefix prepended to every event topic
	QOS            int           `yaml:"qos"`             // MQTT QoS level for events
	PublishTimeout time.Duration `yaml:"publish_timeout"` // Maximum wait for a publish acknowledgement
}

// HeartbeatConfig configures the heartbeat sweeper.
type HeartbeatConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"` // Time between sweeps
	Timeout  time.Duration `yaml:"timeout"`  // Silence after which a connection is closed
}

// HealthConfig configures the health monitor.
type HealthConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Interval          time.Duration `yaml:"interval"`           // Time between health check cycles
	OfflineThreshold  time.Duration `yaml:"offline_threshold"`  // Silence after which reconnection starts
	ReconnectAttempts int           `yaml:"reconnect_attempts"` // Reconnect commands sent before giving up
	ReconnectWait     time.Duration `yaml:"reconnect_wait"`     // Wait after a reconnect command before checking
	RetryDelay        time.Duration `yaml:"retry_delay"`        // Wait between failed attempts
	CPUThreshold      float64       `yaml:"cpu_threshold"`      // CPU percent above which a warning is raised
	MemoryThreshold   float64       `yaml:"memory_threshold"`   // Used/total memory ratio above which a warning is raised
	StorageThreshold  float64       `yaml:"storage_threshold"`  // Used/total storage ratio above which a warning is raised
	MinPlayerVersion  string        `yaml:"min_player_version"` // Oldest player version that does not raise a warning
	Workers           int           `yaml:"workers"`            // Devices checked concurrently
}

// ScheduleConfig configures the schedule trigger.
type ScheduleConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"` // Time between schedule cycles
	Timezone string        `yaml:"timezone"` // IANA zone schedules are written in
}

// AlertsConfig configures metric and alert retention.
type AlertsConfig struct {
	HistoryLimit    int           `yaml:"history_limit"`    // Alerts kept per device
	MetricRetention time.Duration `yaml:"metric_retention"` // Age after which metric samples expire
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // zerolog level name
	Debug bool   `yaml:"debug"` // Shortcut for level debug
}

// Config represents the structure of the configuration file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`

	Services struct {
		Heartbeat HeartbeatConfig `yaml:"heartbeat"`
		Health    HealthConfig    `yaml:"health"`
		Schedule  ScheduleConfig  `yaml:"schedule"`
	} `yaml:"services"`

	Alerts  AlertsConfig  `yaml:"alerts"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoadConfig loads the YAML configuration from the specified file and fills
// unset values with their defaults.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	err := fileClient.ReadYamlFile(filename, &config)
	if err != nil {
		return nil, err
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults replaces zero values with the reference defaults.
func (c *Config) ApplyDefaults() {
	setDefault(&c.Server.ListenAddr, constants.DefaultListenAddr)
	setDefault(&c.Server.WebsocketPath, constants.DefaultWebsocketPath)
	setDefault(&c.Server.ReadLimit, constants.DefaultReadLimit)
	setDefault(&c.Server.WriteTimeout, constants.DefaultWriteTimeout)
	setDefault(&c.Server.OutboundQueueSize, constants.DefaultOutboundQueueSize)
	setDefault(&c.Server.InboundRate, constants.DefaultInboundRate)
	setDefault(&c.Server.InboundBurst, constants.DefaultInboundBurst)

	setDefault(&c.Database.Path, "signage.db")

	setDefault(&c.MQTT.ClientID, "signage-hub")
	setDefault(&c.MQTT.TopicPrefix, constants.DefaultTopicPrefix)
	setDefault(&c.MQTT.PublishTimeout, constants.DefaultPublishTimeout)

	hb := &c.Services.Heartbeat
	setDefault(&hb.Interval, constants.DefaultSweepInterval)
	setDefault(&hb.Timeout, constants.DefaultHeartbeatTimeout)

	health := &c.Services.Health
	setDefault(&health.Interval, constants.DefaultHealthInterval)
	setDefault(&health.OfflineThreshold, constants.DefaultOfflineThreshold)
	setDefault(&health.ReconnectAttempts, constants.DefaultReconnectAttempts)
	setDefault(&health.ReconnectWait, constants.DefaultReconnectWait)
	setDefault(&health.RetryDelay, constants.DefaultRetryDelay)
	setDefault(&health.CPUThreshold, constants.DefaultCPUThreshold)
	setDefault(&health.MemoryThreshold, constants.DefaultMemoryThreshold)
	setDefault(&health.StorageThreshold, constants.DefaultStorageThreshold)
	setDefault(&health.Workers, constants.DefaultHealthWorkers)

	setDefault(&c.Services.Schedule.Interval, constants.DefaultScheduleInterval)

	setDefault(&c.Alerts.HistoryLimit, constants.DefaultAlertHistoryLimit)
	setDefault(&c.Alerts.MetricRetention, constants.DefaultMetricRetention)

	setDefault(&c.Logging.Level, "info")
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
