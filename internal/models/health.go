package models

import "time"

// HealthState is the connectivity state the health monitor keeps per device.
type HealthState string

const (
	HealthUnknown      HealthState = "unknown"
	HealthOnline       HealthState = "online"
	HealthOffline      HealthState = "offline"
	HealthReconnecting HealthState = "reconnecting"
	HealthFailed       HealthState = "failed"
)

// DeviceHealth is a snapshot of the health monitor's view of a device.
type DeviceHealth struct {
	DeviceID   string      `json:"deviceId"`
	BranchID   string      `json:"branchId,omitempty"`
	State      HealthState `json:"state"`
	LastSeen   time.Time   `json:"lastSeen"`
	Attempts   int         `json:"attempts"`
	ChangedAt  time.Time   `json:"changedAt"`
	LastSample time.Time   `json:"lastSample"`
}

// PlaylistChangeEvent is published when a schedule switches a branch to another playlist.
type PlaylistChangeEvent struct {
	ScheduleID       string    `json:"scheduleId"`
	BranchID         string    `json:"branchId"`
	PlaylistID       string    `json:"playlistId"`
	PreviousPlaylist string    `json:"previousPlaylistId,omitempty"`
	Devices          []string  `json:"devices"`
	Timestamp        time.Time `json:"timestamp"`
}
