package db

import (
	"context"
	"time"

	"github.com/benmeehan/signage-hub/internal/models"
)

// Fixtures is the content of a seed file.
type Fixtures struct {
	Branches  []models.Branch         `yaml:"branches"`
	Devices   []models.Device         `yaml:"devices"`
	Schedules []models.ScheduleWindow `yaml:"schedules"`
	// Playlists maps a branch id to its initially assigned playlist.
	Playlists map[string]string `yaml:"playlists"`
}

// Seed upserts every fixture. Branches go first so devices and schedules can
// reference them.
func (db *DB) Seed(ctx context.Context, f Fixtures) error {
	for _, branch := range f.Branches {
		if err := db.UpsertBranch(ctx, branch); err != nil {
			return err
		}
	}
	for _, device := range f.Devices {
		if err := db.UpsertDevice(ctx, device); err != nil {
			return err
		}
	}
	for _, schedule := range f.Schedules {
		if err := db.UpsertSchedule(ctx, schedule); err != nil {
			return err
		}
	}

	now := time.Now()
	for branchID, playlistID := range f.Playlists {
		if _, assigned, err := db.ReadAssignedPlaylist(ctx, branchID); err != nil {
			return err
		} else if assigned {
			continue
		}
		if err := db.WriteAssignedPlaylist(ctx, branchID, playlistID, now); err != nil {
			return err
		}
	}

	return nil
}
