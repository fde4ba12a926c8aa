package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/benmeehan/signage-hub/internal/stores"
)

const selectDeviceSQL = `
	SELECT d.device_id, d.branch_id, d.name, d.active,
		b.volume, b.hours_start, b.hours_end, b.timezone
	FROM devices d
	JOIN branches b ON b.branch_id = d.branch_id
	`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (models.Device, error) {
	var d models.Device
	err := row.Scan(
		&d.ID,
		&d.BranchID,
		&d.Name,
		&d.Active,
		&d.Branch.Volume,
		&d.Branch.OperatingHours.Start,
		&d.Branch.OperatingHours.End,
		&d.Branch.Timezone,
	)
	return d, err
}

// FindDeviceByID returns an active device with its branch settings. Unknown
// and deactivated devices yield stores.ErrDeviceNotFound.
func (db *DB) FindDeviceByID(ctx context.Context, id string) (*models.Device, error) {
	row := db.QueryRowContext(ctx, selectDeviceSQL+`WHERE d.device_id = ? AND d.active = 1`, id)

	device, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", stores.ErrDeviceNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w device: %w", errFailedToQuery, err)
	}

	return &device, nil
}

// ListDevices returns every active device.
func (db *DB) ListDevices(ctx context.Context) ([]models.Device, error) {
	return db.queryDevices(ctx, selectDeviceSQL+`WHERE d.active = 1 ORDER BY d.device_id`)
}

// ListDevicesByBranch returns the active devices of branchID.
func (db *DB) ListDevicesByBranch(ctx context.Context, branchID string) ([]models.Device, error) {
	return db.queryDevices(ctx, selectDeviceSQL+`WHERE d.active = 1 AND d.branch_id = ? ORDER BY d.device_id`, branchID)
}

func (db *DB) queryDevices(ctx context.Context, query string, args ...any) ([]models.Device, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w devices: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("%w device: %w", errFailedToScan, err)
		}
		devices = append(devices, device)
	}

	return devices, rows.Err()
}

// UpsertBranch creates or replaces a branch.
func (db *DB) UpsertBranch(ctx context.Context, branch models.Branch) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO branches (branch_id, name, volume, hours_start, hours_end, timezone)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(branch_id) DO UPDATE SET
			name = excluded.name,
			volume = excluded.volume,
			hours_start = excluded.hours_start,
			hours_end = excluded.hours_end,
			timezone = excluded.timezone
	`, branch.ID, branch.Name, branch.Settings.Volume,
		branch.Settings.OperatingHours.Start, branch.Settings.OperatingHours.End, branch.Settings.Timezone)
	if err != nil {
		return fmt.Errorf("%w branch %s: %w", errFailedToUpsert, branch.ID, err)
	}

	return nil
}

// UpsertDevice creates or replaces a device. Its branch must exist.
func (db *DB) UpsertDevice(ctx context.Context, device models.Device) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO devices (device_id, branch_id, name, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			branch_id = excluded.branch_id,
			name = excluded.name,
			active = excluded.active
	`, device.ID, device.BranchID, device.Name, device.Active)
	if err != nil {
		return fmt.Errorf("%w device %s: %w", errFailedToUpsert, device.ID, err)
	}

	return nil
}
