// Package lua provides the Lua runtime each Polyglot plugin executes in.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed state management (State)
//   - Go-Lua value conversion (ToGo, ToLua)
//   - Capability-gated access to io, os, and debug (Sandbox)
//
// # State
//
// A State owns one sandboxed Lua runtime:
//
//	state, err := lua.NewState()
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoFile("plugin.lua"); err != nil {
//	    return err
//	}
//
// Only the safe built-in libraries (base, table, string, math) are open
// by default. dofile, loadfile, load, and loadstring are removed, and
// require resolves only the safe built-ins plus the host's preloaded pg
// modules.
//
// # Capabilities
//
// Restricted libraries are installed when the corresponding capability
// is granted:
//
//	state.Sandbox().Grant(security.CapabilityFileRead)
//	state.Sandbox().Grant(security.CapabilityUnsafe)
//
// filesystem.read installs a read-only io, filesystem.write a writable
// one, and unsafe opens the full io, os, and debug libraries.
//
// States are not goroutine-safe. Polyglot confines every plugin state to
// the UI goroutine; cross-goroutine work reaches Lua by posting onto the
// application's run loop.
package lua
