// Package api implements the pg.* Lua modules plugins program against.
//
// Each module is instantiated per plugin (Registry.NewSet) and installs its
// functions under a _pg_<name> global. ModuleSet.Inject aggregates the
// installed module tables into the pg table that is passed to the plugin's
// register function and preloaded for require("pg"). Modules forward to
// host-side provider interfaces carried by Context; a nil provider degrades
// queries to logged no-ops while registrations raise a Lua error.
//
// Plugin-owned registrations (commands, event subscriptions, panels,
// services) are tracked per module and removed by Cleanup on unload.
package api
