package state_managers

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/benmeehan/signage-hub/pkg/file"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerStateManager_MissingFile(t *testing.T) {
	// Setup
	sm := NewPlayerStateManager(filepath.Join(t.TempDir(), "state.json"), file.NewFileService(), zerolog.Nop())

	// Execute
	state, err := sm.LoadState()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, models.PlayerState{}, state)
}

func TestPlayerStateManager_SaveAndLoad(t *testing.T) {
	// Setup
	sm := NewPlayerStateManager(filepath.Join(t.TempDir(), "state.json"), file.NewFileService(), zerolog.Nop())
	saved := models.PlayerState{
		DeviceID:   "dev-1",
		PlaylistID: "playlist-9",
		Volume:     55,
		Timezone:   "Asia/Tokyo",
		LastAction: "pause",
		UpdatedAt:  time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC),
	}

	// Execute
	require.NoError(t, sm.SaveState(saved))
	loaded, err := sm.LoadState()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}
