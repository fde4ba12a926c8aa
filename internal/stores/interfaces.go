// Package stores declares the external collaborators the hub reads from and writes to.
package stores

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/benmeehan/signage-hub/internal/models"
)

// ErrDeviceNotFound is returned by a DeviceDirectory for unknown device ids.
var ErrDeviceNotFound = errors.New("device not found")

// DeviceDirectory resolves device identities.
type DeviceDirectory interface {
	FindDeviceByID(ctx context.Context, id string) (*models.Device, error)
	// ListDevices returns every active device.
	ListDevices(ctx context.Context) ([]models.Device, error)
	ListDevicesByBranch(ctx context.Context, branchID string) ([]models.Device, error)
}

// StatusStore keeps the last status reported by each device.
type StatusStore interface {
	WriteStatus(ctx context.Context, deviceID string, payload json.RawMessage, at time.Time) error
	MarkOnline(ctx context.Context, deviceID string, at time.Time) error
	MarkOffline(ctx context.Context, deviceID string) error
	// ReadStatus returns nil and no error when the device never reported.
	ReadStatus(ctx context.Context, deviceID string) (*models.StatusRecord, error)
}

// PlaybackStore keeps playback reports and the playlist assigned to each branch.
type PlaybackStore interface {
	WritePlaybackStatus(ctx context.Context, deviceID string, payload json.RawMessage, at time.Time) error
	ReadAssignedPlaylist(ctx context.Context, branchID string) (string, bool, error)
	WriteAssignedPlaylist(ctx context.Context, branchID, playlistID string, at time.Time) error
}

// ScheduleStore answers which schedules are active at an instant.
type ScheduleStore interface {
	ActiveSchedulesAt(ctx context.Context, instant time.Time) ([]models.ScheduleWindow, error)
}

// MetricsStore keeps metric samples with a bounded retention and a capped alert history.
type MetricsStore interface {
	AppendMetric(ctx context.Context, sample models.MetricSample) error
	ReadMetrics(ctx context.Context, deviceID string, since time.Time) ([]models.MetricSample, error)
	AppendAlert(ctx context.Context, deviceID string, alert models.Alert) error
	// ReadAlerts returns the most recent alerts first.
	ReadAlerts(ctx context.Context, deviceID string, limit int) ([]models.Alert, error)
	ClearAlerts(ctx context.Context, deviceID string) error
}

// EventPublisher notifies other processes.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}
