package models

import (
	"encoding/json"
	"time"
)

// Usage is a total/used pair reported for memory and storage.
type Usage struct {
	Total float64 `json:"total"`
	Used  float64 `json:"used"`
}

// Ratio returns used/total, or zero when the total is unknown.
func (u Usage) Ratio() float64 {
	if u.Total <= 0 {
		return 0
	}
	return u.Used / u.Total
}

// SystemInfo is the host section of a device status report.
type SystemInfo struct {
	OS      string  `json:"os"`
	Memory  Usage   `json:"memory"`
	Storage Usage   `json:"storage"`
	CPU     float64 `json:"cpu"`
}

// DeviceStatus is the payload of a status message.
type DeviceStatus struct {
	Online     bool       `json:"online"`
	IP         string     `json:"ip"`
	Version    string     `json:"version"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

// StatusRecord is the last known status of a device. ReportedAt is when the
// device last sent a status payload, LastSeen when it was last known to be
// connected.
type StatusRecord struct {
	DeviceID   string          `json:"deviceId"`
	Status     DeviceStatus    `json:"status"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	ReportedAt time.Time       `json:"reportedAt"`
	LastSeen   time.Time       `json:"lastSeen"`
}

// PlaybackStatus is the last playback report of a device.
type PlaybackStatus struct {
	DeviceID   string          `json:"deviceId"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"receivedAt"`
}
