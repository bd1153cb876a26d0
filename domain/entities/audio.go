package entities

// ChannelState is the lifecycle state of a DOME audio channel.
// The numeric values mirror CHANNEL_STATE.
type ChannelState int32

const (
	ChannelInvalid ChannelState = iota
	ChannelInitialize
	ChannelToPlay
	ChannelDevirtualize
	ChannelLoading
	ChannelPlaying
	ChannelStopping
	ChannelStopped
	ChannelVirtualizing
	ChannelVirtual
	ChannelLast
)

var channelStateNames = [...]string{
	ChannelInvalid:      "invalid",
	ChannelInitialize:   "initialize",
	ChannelToPlay:       "to_play",
	ChannelDevirtualize: "devirtualize",
	ChannelLoading:      "loading",
	ChannelPlaying:      "playing",
	ChannelStopping:     "stopping",
	ChannelStopped:      "stopped",
	ChannelVirtualizing: "virtualizing",
	ChannelVirtual:      "virtual",
	ChannelLast:         "last",
}

// String returns the snake_case state name.
func (s ChannelState) String() string {
	if s < 0 || int(s) >= len(channelStateNames) {
		return "invalid"
	}
	return channelStateNames[s]
}

// ChannelRef identifies an audio channel inside the host's audio engine.
// Engine is opaque and only meaningful to the host.
type ChannelRef struct {
	ID     uint64
	Engine uintptr
}

// IsZero reports whether the reference was never assigned by the host.
func (r ChannelRef) IsZero() bool {
	return r.ID == 0 && r.Engine == 0
}
