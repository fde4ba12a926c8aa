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

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// WriteStatus stores the payload of a status message verbatim. A device
// sending status is connected, so it is also marked online.
func (db *DB) WriteStatus(ctx context.Context, deviceID string, payload json.RawMessage, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO device_status (device_id, payload, online, reported_at, last_seen)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			payload = excluded.payload,
			online = 1,
			reported_at = excluded.reported_at,
			last_seen = excluded.last_seen
	`, deviceID, string(payload), toUnix(at), toUnix(at))
	if err != nil {
		return fmt.Errorf("%w status of %s: %w", errFailedToUpsert, deviceID, err)
	}

	return nil
}

// MarkOnline records that deviceID connected at the given time.
func (db *DB) MarkOnline(ctx context.Context, deviceID string, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO device_status (device_id, online, last_seen)
		VALUES (?, 1, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			online = 1,
			last_seen = excluded.last_seen
	`, deviceID, toUnix(at))
	if err != nil {
		return fmt.Errorf("%w status of %s: %w", errFailedToUpsert, deviceID, err)
	}

	return nil
}

// MarkOffline records that deviceID disconnected. Its last seen time is kept.
func (db *DB) MarkOffline(ctx context.Context, deviceID string) error {
	_, err := db.ExecContext(ctx, `UPDATE device_status SET online = 0 WHERE device_id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("%w status of %s: %w", errFailedToUpdate, deviceID, err)
	}

	return nil
}

// ReadStatus returns the last known status of deviceID, or nil when it never
// connected. A payload that does not decode leaves Status empty; Raw still
// carries it.
func (db *DB) ReadStatus(ctx context.Context, deviceID string) (*models.StatusRecord, error) {
	var (
		payload    string
		online     bool
		reportedAt int64
		lastSeen   int64
	)

	err := db.QueryRowContext(ctx, `
		SELECT payload, online, reported_at, last_seen
		FROM device_status
		WHERE device_id = ?
	`, deviceID).Scan(&payload, &online, &reportedAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w status of %s: %w", errFailedToQuery, deviceID, err)
	}

	record := &models.StatusRecord{
		DeviceID:   deviceID,
		Raw:        json.RawMessage(payload),
		ReportedAt: fromUnix(reportedAt),
		LastSeen:   fromUnix(lastSeen),
	}
	_ = json.Unmarshal(record.Raw, &record.Status)
	record.Status.Online = online

	return record, nil
}
