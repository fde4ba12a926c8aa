package identity

import (
	"errors"
	"os"

	"github.com/benmeehan/signage-hub/pkg/file"
)

// ErrNoDeviceID is returned when neither the identity file nor the caller
// supplies a device identifier.
var ErrNoDeviceID = errors.New("no device identifier configured")

// Identity is what a player is provisioned with.
type Identity struct {
	ID     string `json:"device_id,omitempty"`
	Name   string `json:"device_name,omitempty"`
	HubURL string `json:"hub_url,omitempty"`
}

// DeviceInfo manages the player identity and the file it is stored in.
type DeviceInfo struct {
	DeviceInfoFile string
	Identity       Identity
	fileOps        file.FileOperations
}

// NewDeviceInfo initializes a new DeviceInfo instance.
func NewDeviceInfo(filePath string, fileOps file.FileOperations) *DeviceInfo {
	return &DeviceInfo{
		DeviceInfoFile: filePath,
		fileOps:        fileOps,
	}
}

// LoadDeviceInfo reads the identity file. A missing file leaves the identity empty.
func (d *DeviceInfo) LoadDeviceInfo() error {
	err := d.fileOps.ReadJsonFile(d.DeviceInfoFile, &d.Identity)
	if err != nil {
		if os.IsNotExist(err) {
			d.Identity = Identity{}
			return nil
		}
		return err
	}
	return nil
}

// Resolve applies command line overrides. A non-empty deviceID that differs
// from the stored one is written back so later starts need no flag.
func (d *DeviceInfo) Resolve(deviceID, hubURL string) (Identity, error) {
	if hubURL != "" {
		d.Identity.HubURL = hubURL
	}
	if deviceID != "" && deviceID != d.Identity.ID {
		if err := d.SaveDeviceID(deviceID); err != nil {
			return Identity{}, err
		}
	}
	if d.Identity.ID == "" {
		return Identity{}, ErrNoDeviceID
	}
	return d.Identity, nil
}

// GetDeviceID returns the current device ID.
func (d *DeviceInfo) GetDeviceID() string {
	return d.Identity.ID
}

// SaveDeviceID updates the device ID and writes the identity back to the file.
func (d *DeviceInfo) SaveDeviceID(deviceID string) error {
	d.Identity.ID = deviceID
	return d.fileOps.WriteJsonFile(d.DeviceInfoFile, d.Identity)
}
