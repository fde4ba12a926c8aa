package state_managers

import (
	"sync"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/benmeehan/signage-hub/pkg/file"
	"github.com/rs/zerolog"
)

// PlayerStateManager handles file-based player state persistence
type PlayerStateManager struct {
	filePath   string
	fileClient file.FileOperations
	logger     zerolog.Logger
	mu         sync.Mutex
}

// NewPlayerStateManager initializes a new PlayerStateManager
func NewPlayerStateManager(filePath string, fileClient file.FileOperations, logger zerolog.Logger) *PlayerStateManager {
	return &PlayerStateManager{
		filePath:   filePath,
		fileClient: fileClient,
		logger:     logger,
	}
}

// LoadState reads the player state from the file. A missing file yields the
// zero state.
func (sm *PlayerStateManager) LoadState() (models.PlayerState, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var state models.PlayerState
	exists, err := sm.fileClient.IsFileExists(sm.filePath)
	if err != nil {
		sm.logger.Error().Err(err).Msg("Failed to stat state file")
		return state, err
	}
	if !exists {
		return state, nil
	}

	if err := sm.fileClient.ReadJsonFile(sm.filePath, &state); err != nil {
		sm.logger.Error().Err(err).Msg("Failed to read state file")
		return models.PlayerState{}, err
	}
	return state, nil
}

// SaveState writes the player state to the file
func (sm *PlayerStateManager) SaveState(state models.PlayerState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := sm.fileClient.WriteJsonFile(sm.filePath, state); err != nil {
		sm.logger.Error().Err(err).Msg("Failed to write state file")
		return err
	}
	return nil
}
