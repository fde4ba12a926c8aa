package mocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/stretchr/testify/mock"
)

// DeviceDirectory is a mock implementation of stores.DeviceDirectory
type DeviceDirectory struct {
	mock.Mock
}

func (m *DeviceDirectory) FindDeviceByID(ctx context.Context, id string) (*models.Device, error) {
	args := m.Called(ctx, id)
	device, _ := args.Get(0).(*models.Device)
	return device, args.Error(1)
}

func (m *DeviceDirectory) ListDevices(ctx context.Context) ([]models.Device, error) {
	args := m.Called(ctx)
	devices, _ := args.Get(0).([]models.Device)
	return devices, args.Error(1)
}

func (m *DeviceDirectory) ListDevicesByBranch(ctx context.Context, branchID string) ([]models.Device, error) {
	args := m.Called(ctx, branchID)
	devices, _ := args.Get(0).([]models.Device)
	return devices, args.Error(1)
}

// StatusStore is a mock implementation of stores.StatusStore
type StatusStore struct {
	mock.Mock
}

func (m *StatusStore) WriteStatus(ctx context.Context, deviceID string, payload json.RawMessage, at time.Time) error {
	args := m.Called(ctx, deviceID, payload, at)
	return args.Error(0)
}

func (m *StatusStore) MarkOnline(ctx context.Context, deviceID string, at time.Time) error {
	args := m.Called(ctx, deviceID, at)
	return args.Error(0)
}

func (m *StatusStore) MarkOffline(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

func (m *StatusStore) ReadStatus(ctx context.Context, deviceID string) (*models.StatusRecord, error) {
	args := m.Called(ctx, deviceID)
	record, _ := args.Get(0).(*models.StatusRecord)
	return record, args.Error(1)
}

// PlaybackStore is a mock implementation of stores.PlaybackStore
type PlaybackStore struct {
	mock.Mock
}

func (m *PlaybackStore) WritePlaybackStatus(ctx context.Context, deviceID string, payload json.RawMessage, at time.Time) error {
	args := m.Called(ctx, deviceID, payload, at)
	return args.Error(0)
}

func (m *PlaybackStore) ReadAssignedPlaylist(ctx context.Context, branchID string) (string, bool, error) {
	args := m.Called(ctx, branchID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *PlaybackStore) WriteAssignedPlaylist(ctx context.Context, branchID, playlistID string, at time.Time) error {
	args := m.Called(ctx, branchID, playlistID, at)
	return args.Error(0)
}

// ScheduleStore is a mock implementation of stores.ScheduleStore
type ScheduleStore struct {
	mock.Mock
}

func (m *ScheduleStore) ActiveSchedulesAt(ctx context.Context, instant time.Time) ([]models.ScheduleWindow, error) {
	args := m.Called(ctx, instant)
	schedules, _ := args.Get(0).([]models.ScheduleWindow)
	return schedules, args.Error(1)
}

// MetricsStore is a mock implementation of stores.MetricsStore
type MetricsStore struct {
	mock.Mock
}

func (m *MetricsStore) AppendMetric(ctx context.Context, sample models.MetricSample) error {
	args := m.Called(ctx, sample)
	return args.Error(0)
}

func (m *MetricsStore) ReadMetrics(ctx context.Context, deviceID string, since time.Time) ([]models.MetricSample, error) {
	args := m.Called(ctx, deviceID, since)
	samples, _ := args.Get(0).([]models.MetricSample)
	return samples, args.Error(1)
}

func (m *MetricsStore) AppendAlert(ctx context.Context, deviceID string, alert models.Alert) error {
	args := m.Called(ctx, deviceID, alert)
	return args.Error(0)
}

func (m *MetricsStore) ReadAlerts(ctx context.Context, deviceID string, limit int) ([]models.Alert, error) {
	args := m.Called(ctx, deviceID, limit)
	alerts, _ := args.Get(0).([]models.Alert)
	return alerts, args.Error(1)
}

func (m *MetricsStore) ClearAlerts(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

// EventPublisher is a mock implementation of stores.EventPublisher
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) Publish(ctx context.Context, topic string, payload any) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}
