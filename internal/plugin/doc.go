// Package plugin implements the Lua plugin system: discovery, manifest
// handling, sandboxed execution and lifecycle management.
//
// # Layout
//
// A plugin is a directory in one of the search paths containing an entry
// script (plugin.lua or init.lua) and an optional plugin.json manifest:
//
//	~/.config/polyglot/plugins/
//	  word-count/
//	    plugin.json
//	    plugin.lua
//
// A bare <name>.lua file directly under a search path is also accepted
// as a single-file plugin. When the same name appears in multiple search
// paths, the earliest path wins.
//
// # Contract
//
// The entry script must define a global register function. It receives
// the pg API table and wires the plugin into the host:
//
//	function register(pg)
//	    pg.command.register("word-count.run", {
//	        title = "Count Words",
//	        handler = function() ... end,
//	    })
//	end
//
//	function unregister(pg)  -- optional
//	    ...
//	end
//
// register is called once per load, after the entry script has run with
// the pg table already injected. unregister, when present, is called on
// unload before the Lua state closes; anything it misses is removed by
// the API modules' own cleanup.
//
// # Lifecycle
//
// Plugins move between three states: discovered, loaded and unloaded. A
// failed load leaves the plugin unloaded with the error recorded, and a
// later load attempt starts fresh. The manifest's dependencies list
// orders loading between plugins; its requires list names the pg API
// modules the plugin cannot run without.
//
// # Capabilities
//
// Lua states start sandboxed. The manifest's capabilities list grants
// access to guarded pg modules and host facilities, e.g. "workbench.panels",
// "workbench.tabs", "workbench.commands", "ui", "filesystem.read".
package plugin
