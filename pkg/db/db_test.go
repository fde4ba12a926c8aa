package db

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/benmeehan/signage-hub/internal/stores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(memoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Seed(context.Background(), Fixtures{
		Branches: []models.Branch{
			{ID: "downtown", Name: "Downtown", Settings: models.BranchSettings{
				Volume:         35,
				OperatingHours: models.OperatingHours{Start: "08:00", End: "22:00"},
				Timezone:       "Europe/Lisbon",
			}},
			{ID: "airport", Name: "Airport"},
		},
		Devices: []models.Device{
			{ID: "dt-1", BranchID: "downtown", Name: "Entrance", Active: true},
			{ID: "dt-2", BranchID: "downtown", Name: "Counter", Active: true},
			{ID: "dt-old", BranchID: "downtown", Active: false},
			{ID: "ap-1", BranchID: "airport", Active: true},
		},
		Schedules: []models.ScheduleWindow{
			{ID: "weekdays", BranchID: "downtown", PlaylistID: "office", StartDate: "2024-05-01", EndDate: "2024-05-31",
				StartTime: "09:00", EndTime: "18:00", Days: []string{"Mon", " wed"}},
			{ID: "forever", BranchID: "airport", PlaylistID: "travel", StartDate: "2024-01-01",
				StartTime: "00:00", EndTime: "23:59", Days: []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}},
		},
		Playlists: map[string]string{"downtown": "default"},
	}))
	return db
}

func TestDB_DeviceDirectory(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	device, err := db.FindDeviceByID(ctx, "dt-1")
	require.NoError(t, err)
	assert.Equal(t, "downtown", device.BranchID)
	assert.Equal(t, 35, device.Branch.Volume)
	assert.Equal(t, "22:00", device.Branch.OperatingHours.End)
	assert.Equal(t, "Europe/Lisbon", device.Branch.Timezone)

	_, err = db.FindDeviceByID(ctx, "missing")
	assert.ErrorIs(t, err, stores.ErrDeviceNotFound)
	_, err = db.FindDeviceByID(ctx, "dt-old")
	assert.ErrorIs(t, err, stores.ErrDeviceNotFound)

	all, err := db.ListDevices(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	branch, err := db.ListDevicesByBranch(ctx, "downtown")
	require.NoError(t, err)
	require.Len(t, branch, 2)
	assert.Equal(t, "dt-1", branch[0].ID)
	assert.Equal(t, "dt-2", branch[1].ID)
}

func TestDB_StatusStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	connectedAt := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	reportedAt := connectedAt.Add(time.Minute)

	record, err := db.ReadStatus(ctx, "dt-1")
	require.NoError(t, err)
	assert.Nil(t, record)

	require.NoError(t, db.MarkOnline(ctx, "dt-1", connectedAt))
	record, err = db.ReadStatus(ctx, "dt-1")
	require.NoError(t, err)
	assert.True(t, record.Status.Online)
	assert.True(t, record.LastSeen.Equal(connectedAt))
	assert.True(t, record.ReportedAt.IsZero())

	payload := json.RawMessage(`{"online":true,"ip":"10.0.0.7","version":"2.1.0","systemInfo":{"os":"linux","cpu":42.5,"memory":{"total":2048,"used":1024},"storage":{"total":100,"used":95}}}`)
	require.NoError(t, db.WriteStatus(ctx, "dt-1", payload, reportedAt))

	record, err = db.ReadStatus(ctx, "dt-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(record.Raw))
	assert.Equal(t, "2.1.0", record.Status.Version)
	assert.Equal(t, 42.5, record.Status.SystemInfo.CPU)
	assert.InDelta(t, 0.95, record.Status.SystemInfo.Storage.Ratio(), 1e-9)
	assert.True(t, record.ReportedAt.Equal(reportedAt))
	assert.True(t, record.LastSeen.Equal(reportedAt))

	require.NoError(t, db.MarkOffline(ctx, "dt-1"))
	record, err = db.ReadStatus(ctx, "dt-1")
	require.NoError(t, err)
	assert.False(t, record.Status.Online)
	assert.True(t, record.LastSeen.Equal(reportedAt))
}

func TestDB_PlaybackStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	playlist, ok, err := db.ReadAssignedPlaylist(ctx, "downtown")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "default", playlist)

	_, ok, err = db.ReadAssignedPlaylist(ctx, "airport")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.WriteAssignedPlaylist(ctx, "downtown", "office", now))
	playlist, _, err = db.ReadAssignedPlaylist(ctx, "downtown")
	require.NoError(t, err)
	assert.Equal(t, "office", playlist)

	require.NoError(t, db.WritePlaybackStatus(ctx, "dt-1", json.RawMessage(`{"item":"intro.mp4"}`), now))
	status, err := db.ReadPlaybackStatus(ctx, "dt-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"item":"intro.mp4"}`, string(status.Payload))
	assert.True(t, status.ReceivedAt.Equal(now))
}

func TestDB_ActiveSchedulesAt(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	ids := func(at time.Time) []string {
		schedules, err := db.ActiveSchedulesAt(ctx, at)
		require.NoError(t, err)
		var out []string
		for _, s := range schedules {
			out = append(out, s.ID)
			assert.True(t, s.ActiveAt(at), "store returned %s which is inactive at %s", s.ID, at)
		}
		return out
	}

	// Wednesday 2024-05-15.
	assert.Equal(t, []string{"forever", "weekdays"}, ids(time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"forever"}, ids(time.Date(2024, 5, 15, 19, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"forever"}, ids(time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"forever", "weekdays"}, ids(time.Date(2024, 5, 13, 18, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"forever"}, ids(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)))

	schedules, err := db.ActiveSchedulesAt(ctx, time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"mon", "wed"}, schedules[1].Days)
}

func TestDB_SeedKeepsAssignedPlaylist(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.WriteAssignedPlaylist(ctx, "downtown", "office", time.Now()))
	require.NoError(t, db.Seed(ctx, Fixtures{Playlists: map[string]string{"downtown": "default"}}))

	playlist, _, err := db.ReadAssignedPlaylist(ctx, "downtown")
	require.NoError(t, err)
	assert.Equal(t, "office", playlist)
}

func TestDB_UpsertDeviceRequiresBranch(t *testing.T) {
	db := newTestDB(t)

	err := db.UpsertDevice(context.Background(), models.Device{ID: "x", BranchID: "nowhere", Active: true})
	assert.Error(t, err)
}

func TestDB_UpsertScheduleRejectsMalformedTime(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	err := db.UpsertSchedule(ctx, models.ScheduleWindow{
		ID: "sloppy", BranchID: "downtown", PlaylistID: "office", StartDate: "2024-05-01",
		StartTime: "9:00", EndTime: "18:00", Days: []string{"wed"},
	})
	require.ErrorIs(t, err, models.ErrInvalidSchedule)

	schedules, err := db.ActiveSchedulesAt(ctx, time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	for _, s := range schedules {
		assert.NotEqual(t, "sloppy", s.ID)
	}
}
