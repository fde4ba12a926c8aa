package models

import "encoding/json"

// Envelope is the frame a device sends over its channel.
type Envelope struct {
	Type     string          `json:"type"`           // connect, status, playback or ping
	DeviceID string          `json:"deviceId"`       // Identifier the device was provisioned with
	Data     json.RawMessage `json:"data,omitempty"` // Type specific payload
}

// Frame is what the hub writes to a device.
type Frame struct {
	Type    string `json:"type"`              // config, command, pong or error
	Command string `json:"command,omitempty"` // Set for command frames
	Data    any    `json:"data,omitempty"`
}

// VolumePayload is the data of a volume:set command.
type VolumePayload struct {
	Volume int `json:"volume"`
}

// PlaylistPayload is the data of a playlist:change command.
type PlaylistPayload struct {
	PlaylistID string `json:"playlistId"`
}
