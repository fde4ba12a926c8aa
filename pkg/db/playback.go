package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/signage-hub/internal/models"
)

// WritePlaybackStatus stores the last playback report of deviceID.
func (db *DB) WritePlaybackStatus(ctx context.Context, deviceID string, payload json.RawMessage, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO playback_status (device_id, payload, received_at)
		VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			payload = excluded.payload,
			received_at = excluded.received_at
	`, deviceID, string(payload), toUnix(at))
	if err != nil {
		return fmt.Errorf("%w playback status of %s: %w", errFailedToUpsert, deviceID, err)
	}

	return nil
}

// ReadPlaybackStatus returns the last playback report of deviceID, or nil.
func (db *DB) ReadPlaybackStatus(ctx context.Context, deviceID string) (*models.PlaybackStatus, error) {
	var (
		payload    string
		receivedAt int64
	)

	err := db.QueryRowContext(ctx, `
		SELECT payload, received_at FROM playback_status WHERE device_id = ?
	`, deviceID).Scan(&payload, &receivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w playback status of %s: %w", errFailedToQuery, deviceID, err)
	}

	return &models.PlaybackStatus{
		DeviceID:   deviceID,
		Payload:    json.RawMessage(payload),
		ReceivedAt: fromUnix(receivedAt),
	}, nil
}

// ReadAssignedPlaylist returns the playlist assigned to branchID and whether
// one is assigned.
func (db *DB) ReadAssignedPlaylist(ctx context.Context, branchID string) (string, bool, error) {
	var playlistID string

	err := db.QueryRowContext(ctx, `
		SELECT playlist_id FROM branch_playlists WHERE branch_id = ?
	`, branchID).Scan(&playlistID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w assigned playlist of %s: %w", errFailedToQuery, branchID, err)
	}

	return playlistID, true, nil
}

// WriteAssignedPlaylist assigns playlistID to branchID.
func (db *DB) WriteAssignedPlaylist(ctx context.Context, branchID, playlistID string, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO branch_playlists (branch_id, playlist_id, assigned_at)
		VALUES (?, ?, ?)
		ON CONFLICT(branch_id) DO UPDATE SET
			playlist_id = excluded.playlist_id,
			assigned_at = excluded.assigned_at
	`, branchID, playlistID, toUnix(at))
	if err != nil {
		return fmt.Errorf("%w assigned playlist of %s: %w", errFailedToUpsert, branchID, err)
	}

	return nil
}
