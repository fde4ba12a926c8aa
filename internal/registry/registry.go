// Package registry tracks which devices currently hold a live connection.
package registry

import (
	"sync/atomic"
	"time"

	"github.com/benmeehan/signage-hub/internal/models"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// Handle is the transport side of a device connection.
type Handle interface {
	// ID identifies this particular connection, not the device.
	ID() string
	// Send queues a frame for delivery without waiting for it to be written.
	Send(frame models.Frame) error
	// Ping writes a transport level ping.
	Ping() error
	Close() error
}

// DeviceConnection is the registry entry for a connected device.
type DeviceConnection struct {
	DeviceID    string
	BranchID    string
	Handle      Handle
	ConnectedAt time.Time

	lastHeartbeat atomic.Int64
}

// LastHeartbeat returns the time the device was last heard from.
func (c *DeviceConnection) LastHeartbeat() time.Time {
	return time.Unix(0, c.lastHeartbeat.Load())
}

// Touch records traffic from the device at the given time.
func (c *DeviceConnection) Touch(at time.Time) {
	c.lastHeartbeat.Store(at.UnixNano())
}

// Registry maps device ids to their live connection. At most one connection
// is kept per device.
type Registry struct {
	conns  cmap.ConcurrentMap[string, *DeviceConnection]
	logger zerolog.Logger
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		conns:  cmap.New[*DeviceConnection](),
		logger: logger,
		now:    time.Now,
	}
}

// Register stores handle as the connection of deviceID. A connection already
// registered for the device is replaced in the same step and then closed.
func (r *Registry) Register(deviceID, branchID string, handle Handle) *DeviceConnection {
	now := r.now()
	conn := &DeviceConnection{
		DeviceID:    deviceID,
		BranchID:    branchID,
		Handle:      handle,
		ConnectedAt: now,
	}
	conn.Touch(now)

	var prior *DeviceConnection
	r.conns.Upsert(deviceID, conn, func(exists bool, current, next *DeviceConnection) *DeviceConnection {
		if exists {
			prior = current
		}
		return next
	})

	if prior != nil && prior.Handle != handle {
		r.logger.Info().
			Str("device_id", deviceID).
			Str("previous_connection", prior.Handle.ID()).
			Str("connection", handle.ID()).
			Msg("Replacing existing device connection")
		if err := prior.Handle.Close(); err != nil {
			r.logger.Debug().Err(err).Str("device_id", deviceID).Msg("Closing replaced connection failed")
		}
	}

	return conn
}

// Touch refreshes the heartbeat of deviceID. Unknown devices are ignored.
func (r *Registry) Touch(deviceID string) {
	if conn, ok := r.conns.Get(deviceID); ok {
		conn.Touch(r.now())
	}
}

// Unregister drops whatever connection is registered for deviceID and returns it.
func (r *Registry) Unregister(deviceID string) (*DeviceConnection, bool) {
	return r.conns.Pop(deviceID)
}

// Remove drops conn only if it is still the registered connection of its
// device. It reports whether conn was removed.
func (r *Registry) Remove(conn *DeviceConnection) bool {
	return r.conns.RemoveCb(conn.DeviceID, func(_ string, current *DeviceConnection, exists bool) bool {
		return exists && current == conn
	})
}

// Get returns the live connection of deviceID.
func (r *Registry) Get(deviceID string) (*DeviceConnection, bool) {
	return r.conns.Get(deviceID)
}

// ForEach calls visit for every registered connection. It works on a snapshot,
// so visit may call back into the registry.
func (r *Registry) ForEach(visit func(conn *DeviceConnection)) {
	for item := range r.conns.IterBuffered() {
		visit(item.Val)
	}
}

// Len returns the number of connected devices.
func (r *Registry) Len() int {
	return r.conns.Count()
}

// DeviceIDs lists the connected devices.
func (r *Registry) DeviceIDs() []string {
	return r.conns.Keys()
}
