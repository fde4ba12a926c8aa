// Package db provides the SQLite backed device directory, status,
// playback and schedule stores.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	memoryPath = ":memory:"

	// SQL statements for database initialization.
	createTablesSQL = `
	-- Branches and the settings pushed to their devices
	CREATE TABLE IF NOT EXISTS branches (
		branch_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		volume INTEGER NOT NULL DEFAULT 50,
		hours_start TEXT NOT NULL DEFAULT '',
		hours_end TEXT NOT NULL DEFAULT '',
		timezone TEXT NOT NULL DEFAULT ''
	);

	-- Playback devices
	CREATE TABLE IF NOT EXISTS devices (
		device_id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT 1,
		FOREIGN KEY (branch_id) REFERENCES branches(branch_id) ON DELETE CASCADE
	);

	-- Playlist schedules, days is a comma separated list of weekday codes
	CREATE TABLE IF NOT EXISTS schedules (
		schedule_id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		playlist_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		days TEXT NOT NULL,
		repeat_mode TEXT NOT NULL DEFAULT '',
		repeat_interval INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (branch_id) REFERENCES branches(branch_id) ON DELETE CASCADE
	);

	-- Playlist currently assigned to each branch
	CREATE TABLE IF NOT EXISTS branch_playlists (
		branch_id TEXT PRIMARY KEY,
		playlist_id TEXT NOT NULL,
		assigned_at INTEGER NOT NULL,
		FOREIGN KEY (branch_id) REFERENCES branches(branch_id) ON DELETE CASCADE
	);

	-- Last status reported by each device, times are unix nanoseconds
	CREATE TABLE IF NOT EXISTS device_status (
		device_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL DEFAULT '{}',
		online BOOLEAN NOT NULL DEFAULT 0,
		reported_at INTEGER NOT NULL DEFAULT 0,
		last_seen INTEGER NOT NULL DEFAULT 0
	);

	-- Last playback report of each device
	CREATE TABLE IF NOT EXISTS playback_status (
		device_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		received_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_devices_branch
		ON devices(branch_id);
	CREATE INDEX IF NOT EXISTS idx_schedules_window
		ON schedules(start_date, end_date, start_time, end_time);
	`
)

// DB represents the database connection and operations.
type DB struct {
	*sql.DB
}

// New opens the database at dbPath and initializes the schema.
func New(dbPath string) (*DB, error) {
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000"

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedOpenDB, err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == memoryPath || strings.Contains(dbPath, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	} else if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: %w", errFailedToEnableWAL, err)
	}

	db := &DB{sqlDB}
	if err := db.initSchema(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: %w", errFailedToInit, err)
	}

	return db, nil
}

// initSchema creates the database tables if they don't exist.
func (db *DB) initSchema(ctx context.Context) error {
	_, err := db.ExecContext(ctx, createTablesSQL)

	return err
}
