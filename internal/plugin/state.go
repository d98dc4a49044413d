package plugin

// State represents the lifecycle state of a plugin.
type State int

// Plugin states.
const (
	// StateDiscovered - Plugin was found on disk but not loaded.
	StateDiscovered State = iota

	// StateLoaded - Plugin code was evaluated successfully.
	StateLoaded

	// StateDisabled - Plugin is excluded by configuration.
	StateDisabled

	// StateError - Plugin failed to load.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateLoaded:
		return "loaded"
	case StateDisabled:
		return "disabled"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Info describes one plugin as known to the Manager.
type Info struct {
	// Name is the plugin's identity, derived from its file or directory
	// name.
	Name string

	// Path is the plugin's location on disk: the file itself for
	// single-file plugins, the directory for directory plugins.
	Path string

	// Entry is the source file evaluated to load the plugin.
	Entry string

	State State

	// Err records the load failure when State is StateError.
	Err error
}
