package plugin

import (
	"fmt"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/logging"
	"github.com/dshills/polyglot/internal/plugin/api"
	luabridge "github.com/dshills/polyglot/internal/plugin/lua"
)

// Host runs one plugin in its own Lua state. Loading creates the state,
// grants the manifest capabilities, injects the pg API, runs the entry
// script and calls its register function. Unloading calls the optional
// unregister function, tears down the API modules and closes the state.
type Host struct {
	mu       sync.RWMutex
	name     string
	manifest *Manifest
	state    *luabridge.State
	modules  *api.ModuleSet
	pg       *lua.LTable
	st       State
	err      error
	logger   *logging.Logger
}

// NewHost creates an unloaded host for a plugin.
func NewHost(manifest *Manifest, modules *api.ModuleSet, logger *logging.Logger) (*Host, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}
	if modules == nil {
		return nil, fmt.Errorf("plugin %q: nil module set", manifest.Name)
	}
	if logger == nil {
		logger = logging.Null
	}
	return &Host{
		name:     manifest.Name,
		manifest: manifest,
		modules:  modules,
		st:       StateUnloaded,
		logger:   logger.WithComponent("plugin.host"),
	}, nil
}

// Name returns the plugin name.
func (h *Host) Name() string {
	return h.name
}

// Manifest returns the plugin manifest.
func (h *Host) Manifest() *Manifest {
	return h.manifest
}

// State returns the lifecycle state.
func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.st
}

// Error returns the last load error, if any.
func (h *Host) Error() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Load brings the plugin up. On any failure the partially built state is
// torn down and the host stays unloaded with the error recorded, so a
// later Load can retry.
func (h *Host) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.st == StateLoaded {
		return fmt.Errorf("plugin %q: %w", h.name, ErrAlreadyLoaded)
	}

	state, err := luabridge.NewState()
	if err != nil {
		return h.fail(fmt.Errorf("plugin %q: create state: %w", h.name, err))
	}
	for _, c := range h.manifest.Capabilities {
		state.Sandbox().Grant(c)
	}

	// The pg table must exist before the entry script runs so top-level
	// require("pg") works.
	pg, err := h.modules.Inject(state.LuaState(), state.Sandbox().HasCapability)
	if err != nil {
		state.Close()
		return h.fail(fmt.Errorf("plugin %q: %w", h.name, err))
	}

	entry := h.manifest.MainPath()
	if err := state.DoFile(entry); err != nil {
		h.modules.Cleanup()
		state.Close()
		return h.fail(fmt.Errorf("plugin %q: run %s: %w", h.name, filepath.Base(entry), err))
	}

	if !state.HasFunction("register") {
		h.modules.Cleanup()
		state.Close()
		return h.fail(fmt.Errorf("plugin %q: %w", h.name, ErrNoRegister))
	}
	if _, err := state.Call("register", pg); err != nil {
		h.modules.Cleanup()
		state.Close()
		return h.fail(fmt.Errorf("plugin %q: %w: %v", h.name, ErrRegisterFailed, err))
	}

	h.state = state
	h.pg = pg
	h.st = StateLoaded
	h.err = nil
	return nil
}

// fail records a load failure. Callers hold the lock.
func (h *Host) fail(err error) error {
	h.state = nil
	h.pg = nil
	h.st = StateUnloaded
	h.err = err
	return err
}

// Unload tears the plugin down. The optional unregister function is
// called first; its errors are logged, never fatal. Unload always leaves
// the host unloaded.
func (h *Host) Unload() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.st != StateLoaded {
		return
	}

	if h.state.HasFunction("unregister") {
		if _, err := h.state.Call("unregister", h.pg); err != nil {
			h.logger.Warn("plugin %s unregister: %v", h.name, err)
		}
	}
	h.modules.Cleanup()
	if err := h.state.Close(); err != nil {
		h.logger.Warn("plugin %s close: %v", h.name, err)
	}

	h.state = nil
	h.pg = nil
	h.st = StateUnloaded
	h.err = nil
}

// HasFunction reports whether the plugin defines a global function.
func (h *Host) HasFunction(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state == nil {
		return false
	}
	return h.state.HasFunction(name)
}

// Call invokes a global function in the plugin, bridging arguments and
// results between Go and Lua.
func (h *Host) Call(fn string, args ...any) ([]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == nil {
		return nil, fmt.Errorf("plugin %q: %w", h.name, ErrNotLoaded)
	}

	lvArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lvArgs[i] = luabridge.ToLua(h.state.LuaState(), a)
	}
	results, err := h.state.Call(fn, lvArgs...)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: call %s: %w", h.name, fn, err)
	}

	out := make([]any, len(results))
	for i, r := range results {
		out[i] = luabridge.ToGo(r)
	}
	return out, nil
}
