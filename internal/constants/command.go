package constants

// Commands understood by the players.
const (
	CommandSystemReconnect = "system:reconnect"
	CommandVolumeSet       = "volume:set"
	CommandPlaylistChange  = "playlist:change"

	// CommandPlaybackPrefix is followed by the action, e.g. playback:pause.
	CommandPlaybackPrefix = "playback:"
)

// Event channel topics.
const (
	TopicPlaylistChanged = "playlist/changed"
	TopicAlerts          = "alerts"
)
