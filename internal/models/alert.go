package models

import "time"

// Severity of an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a health finding for a device. One record may carry several messages.
type Alert struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"deviceId"`
	BranchID  string    `json:"branchId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Messages  []string  `json:"messages"`
	Severity  Severity  `json:"severity"`
}

// MetricSample is recorded once per health check cycle per device.
type MetricSample struct {
	DeviceID     string    `json:"device_id"`
	Timestamp    time.Time `json:"timestamp"`
	CPU          float64   `json:"cpu"`
	MemoryTotal  float64   `json:"memory_total"`
	MemoryUsed   float64   `json:"memory_used"`
	StorageTotal float64   `json:"storage_total"`
	StorageUsed  float64   `json:"storage_used"`
}
