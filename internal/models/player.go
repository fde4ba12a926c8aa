package models

import "time"

// PlayerState is what a player persists between restarts.
type PlayerState struct {
	DeviceID       string         `json:"deviceId"`
	PlaylistID     string         `json:"playlistId,omitempty"`
	Volume         int            `json:"volume"`
	Timezone       string         `json:"timezone,omitempty"`
	OperatingHours OperatingHours `json:"operatingHours"`
	LastAction     string         `json:"lastAction,omitempty"` // Last playback action applied, e.g. pause
	UpdatedAt      time.Time      `json:"updatedAt"`
}
