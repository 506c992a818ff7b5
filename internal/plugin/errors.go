package plugin

import "errors"

// Plugin system errors.
var (
	// ErrPluginNotFound indicates the named plugin was never discovered.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNoEntryPoint indicates a plugin directory without an entry script.
	ErrNoEntryPoint = errors.New("plugin has no entry script (plugin.lua or init.lua)")

	// ErrNilManifest indicates a host was constructed without a manifest.
	ErrNilManifest = errors.New("manifest is nil")

	// ErrAlreadyLoaded indicates Load was called on a live host.
	ErrAlreadyLoaded = errors.New("plugin already loaded")

	// ErrNotLoaded indicates an operation that needs a loaded plugin.
	ErrNotLoaded = errors.New("plugin not loaded")

	// ErrDependencyNotFound indicates a declared dependency was never
	// discovered.
	ErrDependencyNotFound = errors.New("plugin dependency not discovered")

	// ErrDependencyNotLoaded indicates a declared dependency is discovered
	// but not loaded.
	ErrDependencyNotLoaded = errors.New("plugin dependency not loaded")

	// ErrRequirementMissing indicates the plugin requires an API module the
	// registry does not provide.
	ErrRequirementMissing = errors.New("required api module not available")

	// ErrNoRegister indicates the entry script defines no register function.
	ErrNoRegister = errors.New("plugin does not define register")

	// ErrRegisterFailed indicates the register function raised an error.
	ErrRegisterFailed = errors.New("plugin register failed")

	// ErrNotInitialized indicates the system is used before Initialize.
	ErrNotInitialized = errors.New("plugin system not initialized")

	// ErrAlreadyInitialized indicates Initialize was called twice.
	ErrAlreadyInitialized = errors.New("plugin system already initialized")
)
