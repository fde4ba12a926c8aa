package identity

import (
	"path/filepath"
	"testing"

	"github.com/benmeehan/signage-hub/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceInfo_MissingFile(t *testing.T) {
	// Setup
	d := NewDeviceInfo(filepath.Join(t.TempDir(), "identity.json"), file.NewFileService())

	// Execute
	require.NoError(t, d.LoadDeviceInfo())
	_, err := d.Resolve("", "")

	// Assert
	assert.ErrorIs(t, err, ErrNoDeviceID)
}

func TestDeviceInfo_ResolvePersistsOverride(t *testing.T) {
	// Setup
	path := filepath.Join(t.TempDir(), "identity.json")
	d := NewDeviceInfo(path, file.NewFileService())
	require.NoError(t, d.LoadDeviceInfo())

	// Execute
	identity, err := d.Resolve("screen-001", "ws://hub:8080/ws")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "screen-001", identity.ID)

	reloaded := NewDeviceInfo(path, file.NewFileService())
	require.NoError(t, reloaded.LoadDeviceInfo())
	assert.Equal(t, "screen-001", reloaded.GetDeviceID())
	assert.Equal(t, "ws://hub:8080/ws", reloaded.Identity.HubURL)
}

func TestDeviceInfo_ResolveUsesStoredID(t *testing.T) {
	// Setup
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, file.NewFileService().WriteJsonFile(path, Identity{ID: "screen-002", HubURL: "ws://stored/ws"}))
	d := NewDeviceInfo(path, file.NewFileService())
	require.NoError(t, d.LoadDeviceInfo())

	// Execute
	identity, err := d.Resolve("", "")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: "screen-002", HubURL: "ws://stored/ws"}, identity)
}
