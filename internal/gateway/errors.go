package gateway

import "errors"

var (
	// ErrDeviceUnreachable means the target device has no live connection.
	ErrDeviceUnreachable = errors.New("device unreachable")
	// ErrTransport wraps socket level failures.
	ErrTransport = errors.New("transport error")
	// ErrConnectionClosed is returned when sending on a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrOutboundQueueFull is returned when a slow device cannot keep up with its frames.
	ErrOutboundQueueFull = errors.New("outbound queue full")
	// ErrNotIdentified is returned when a device talks before sending connect.
	ErrNotIdentified = errors.New("device has not identified itself")
)
