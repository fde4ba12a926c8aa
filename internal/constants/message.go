package constants

// Inbound message types.
const (
	MessageConnect  = "connect"
	MessageStatus   = "status"
	MessagePlayback = "playback"
	MessagePing     = "ping"
)

// Outbound frame types.
const (
	FrameConfig  = "config"
	FrameCommand = "command"
	FramePong    = "pong"
	FrameError   = "error"
)
