package plugin

// State is the lifecycle state of a plugin.
//
// The machine is discovered → loaded ⇄ unloaded. A failed load leaves the
// plugin unloaded with its error recorded on the PluginInfo; a later load
// attempt may succeed.
type State int

// Plugin states.
const (
	// StateDiscovered - found on disk, never loaded.
	StateDiscovered State = iota

	// StateLoaded - entry script ran and register(pg) completed.
	StateLoaded

	// StateUnloaded - unloaded, or a load attempt failed.
	StateUnloaded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateLoaded:
		return "loaded"
	case StateUnloaded:
		return "unloaded"
	default:
		return "unknown"
	}
}
