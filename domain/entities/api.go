package entities

// APIType selects one capability group from the host's getAPI function.
// The numeric values are fixed by the DOME plugin ABI.
type APIType int32

const (
	// APIDome is the DOME engine API (module registration, logging).
	APIDome APIType = iota
	// APIWren is the Wren VM slot API.
	APIWren
	// APIAudio is the DOME audio channel API.
	APIAudio
)

// API versions this SDK is compiled against. The host returns NULL for a
// version it does not support and the plugin refuses to load.
const (
	DomeAPIVersion  int32 = 0
	WrenAPIVersion  int32 = 0
	AudioAPIVersion int32 = 0
)

// String returns the name DOME uses for the API group.
func (a APIType) String() string {
	switch a {
	case APIDome:
		return "dome"
	case APIWren:
		return "wren"
	case APIAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Version returns the version of the API group this SDK requests.
func (a APIType) Version() int32 {
	switch a {
	case APIDome:
		return DomeAPIVersion
	case APIWren:
		return WrenAPIVersion
	case APIAudio:
		return AudioAPIVersion
	default:
		return -1
	}
}

// APITypes lists the groups loaded at init, in load order.
func APITypes() []APIType {
	return []APIType{APIDome, APIWren, APIAudio}
}

// SDKVersion is the version of this SDK, reported in plugin manifests.
const SDKVersion = "0.1.0"
