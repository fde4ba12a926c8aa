package models

// OperatingHours is the daily window a branch keeps its screens on.
type OperatingHours struct {
	Start string `json:"start" yaml:"start"` // HH:MM
	End   string `json:"end" yaml:"end"`     // HH:MM
}

// BranchSettings is the configuration pushed to a device right after it connects.
type BranchSettings struct {
	Volume         int            `json:"volume" yaml:"volume"`
	OperatingHours OperatingHours `json:"operatingHours" yaml:"operating_hours"`
	Timezone       string         `json:"timezone" yaml:"timezone"`
}

// Device is a playback endpoint as known by the device directory.
type Device struct {
	ID       string         `json:"id" yaml:"id"`
	BranchID string         `json:"branchId" yaml:"branch_id"`
	Name     string         `json:"name,omitempty" yaml:"name"`
	Active   bool           `json:"active" yaml:"active"`
	Branch   BranchSettings `json:"branchSettings" yaml:"-"`
}

// DeviceConfig is the data of the config frame sent after a successful connect.
type DeviceConfig struct {
	BranchSettings
	PlaylistID string `json:"playlistId,omitempty"`
}

// Branch is a location owning devices, schedules and an assigned playlist.
type Branch struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name,omitempty" yaml:"name"`
	Settings BranchSettings `json:"settings" yaml:"settings"`
}
