package constants

import "time"

// Heartbeat sweeper defaults.
const (
	DefaultSweepInterval    = 15 * time.Second
	DefaultHeartbeatTimeout = 30 * time.Second
)

// Health monitor defaults.
const (
	DefaultHealthInterval    = 60 * time.Second
	DefaultOfflineThreshold  = 180 * time.Second
	DefaultReconnectAttempts = 3
	DefaultReconnectWait     = 5 * time.Second
	DefaultRetryDelay        = 30 * time.Second
	DefaultHealthWorkers     = 8

	DefaultCPUThreshold     = 80.0 // percent
	DefaultMemoryThreshold  = 0.90 // used/total
	DefaultStorageThreshold = 0.90 // used/total
)

// Schedule trigger defaults.
const (
	DefaultScheduleInterval = 60 * time.Second
)

// Metrics and alert retention.
const (
	DefaultAlertHistoryLimit = 100
	DefaultMetricRetention   = 24 * time.Hour
)

// Gateway defaults.
const (
	DefaultListenAddr        = ":8080"
	DefaultWebsocketPath     = "/ws"
	DefaultReadLimit         = 64 * 1024 // bytes
	DefaultWriteTimeout      = 10 * time.Second
	DefaultOutboundQueueSize = 32
	DefaultInboundRate       = 20 // messages per second
	DefaultInboundBurst      = 40
)

// Event channel defaults.
const (
	DefaultTopicPrefix    = "signage"
	DefaultPublishTimeout = 5 * time.Second
)

// Reference player defaults.
const (
	DefaultPlayerStatusInterval = 30 * time.Second
	DefaultPlayerPingInterval   = 10 * time.Second
	DefaultPlayerReconnectDelay = 5 * time.Second
	DefaultPlayerStateFile      = "player_state.json"
)
