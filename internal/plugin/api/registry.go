package api

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/logging"
	"github.com/dshills/polyglot/internal/plugin/security"
)

// Version is the pg API version exposed to plugins as pg.version.
const Version = "1.0.0"

// Module is one pg.* API module bound to a single plugin.
type Module interface {
	// Name returns the module's name under the pg namespace.
	Name() string

	// RequiredCapability returns the capability a plugin must hold for the
	// module to be injected, or "" when the module is ungated.
	RequiredCapability() security.Capability

	// Register installs the module's functions into L under the _pg_<name>
	// global.
	Register(L *lua.LState) error

	// Cleanup releases everything the plugin registered through the
	// module. It must be safe to call when Register never ran.
	Cleanup()
}

// ModuleFactory builds a module bound to one plugin.
type ModuleFactory func(ctx *Context, pluginName string) Module

// Context carries the host collaborators the API modules forward to. Any
// provider may be nil: query operations degrade to logged no-ops and
// registrations raise a Lua error.
type Context struct {
	Workbench WorkbenchProvider
	Tabs      TabsProvider
	Commands  CommandProvider
	Events    EventProvider
	Services  ServiceProvider
	Config    ConfigProvider
	UI        UIProvider
	Logger    *logging.Logger
}

func (c *Context) logger() *logging.Logger {
	if c == nil || c.Logger == nil {
		return logging.Null
	}
	return c.Logger
}

// Registry holds the module factories shared by all plugins. NewSet
// instantiates the full module list for one plugin.
type Registry struct {
	mu        sync.RWMutex
	ctx       *Context
	factories map[string]ModuleFactory
	order     []string
	logger    *logging.Logger
}

// NewRegistry creates a registry with the built-in pg modules registered:
// panel, tabs, command, event, service, config, ui, util.
func NewRegistry(ctx *Context, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Null
	}
	if ctx == nil {
		ctx = &Context{}
	}
	if ctx.Logger == nil {
		ctx.Logger = logger
	}

	r := &Registry{
		ctx:       ctx,
		factories: make(map[string]ModuleFactory),
		logger:    logger.WithComponent("api"),
	}

	builtins := []struct {
		name    string
		factory ModuleFactory
	}{
		{"panel", func(ctx *Context, plugin string) Module { return NewPanelModule(ctx, plugin) }},
		{"tabs", func(ctx *Context, plugin string) Module { return NewTabsModule(ctx, plugin) }},
		{"command", func(ctx *Context, plugin string) Module { return NewCommandModule(ctx, plugin) }},
		{"event", func(ctx *Context, plugin string) Module { return NewEventModule(ctx, plugin) }},
		{"service", func(ctx *Context, plugin string) Module { return NewServiceModule(ctx, plugin) }},
		{"config", func(ctx *Context, plugin string) Module { return NewConfigModule(ctx, plugin) }},
		{"ui", func(ctx *Context, plugin string) Module { return NewUIModule(ctx, plugin) }},
		{"util", func(ctx *Context, plugin string) Module { return NewUtilModule(ctx, plugin) }},
	}
	for _, b := range builtins {
		r.factories[b.name] = b.factory
		r.order = append(r.order, b.name)
	}
	return r
}

// Register adds a module factory under name. Registered names cannot be
// replaced.
func (r *Registry) Register(name string, factory ModuleFactory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("api module %q: %w", name, ErrInvalidModule)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("api module %q: %w", name, ErrModuleExists)
	}
	r.factories[name] = factory
	r.order = append(r.order, name)
	return nil
}

// Has reports whether a module name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the module names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// NewSet instantiates every registered module for one plugin.
func (r *Registry) NewSet(pluginName string) *ModuleSet {
	r.mu.RLock()
	mods := make([]Module, 0, len(r.order))
	for _, name := range r.order {
		mods = append(mods, r.factories[name](r.ctx, pluginName))
	}
	r.mu.RUnlock()

	return &ModuleSet{
		plugin:  pluginName,
		modules: mods,
		logger:  r.logger,
	}
}

// ModuleSet is the pg API instantiated for one plugin. Inject installs the
// modules into the plugin's state; Cleanup tears their registrations down
// on unload.
type ModuleSet struct {
	plugin    string
	modules   []Module
	installed []Module
	logger    *logging.Logger
}

// Inject installs every module whose required capability the plugin holds,
// builds the aggregate pg table, and preloads it for require("pg"). The
// table is returned so the host can pass it to the plugin's register
// function.
func (s *ModuleSet) Inject(L *lua.LState, has func(security.Capability) bool) (*lua.LTable, error) {
	if L == nil {
		return nil, ErrNilState
	}
	for _, m := range s.modules {
		if c := m.RequiredCapability(); c != "" && (has == nil || !has(c)) {
			s.logger.Debug("plugin %s: module %s skipped, missing capability %s", s.plugin, m.Name(), c)
			continue
		}
		if err := m.Register(L); err != nil {
			return nil, fmt.Errorf("inject module %s: %w", m.Name(), err)
		}
		s.installed = append(s.installed, m)
	}

	pg := L.NewTable()
	L.SetField(pg, "version", lua.LString(Version))
	L.SetField(pg, "plugin", lua.LString(s.plugin))
	for _, m := range s.installed {
		if tbl, ok := L.GetGlobal("_pg_" + m.Name()).(*lua.LTable); ok {
			L.SetField(pg, m.Name(), tbl)
		}
	}

	L.PreloadModule("pg", func(L *lua.LState) int {
		L.Push(pg)
		return 1
	})
	return pg, nil
}

// Installed returns the names of the modules injected into the state.
func (s *ModuleSet) Installed() []string {
	out := make([]string, 0, len(s.installed))
	for _, m := range s.installed {
		out = append(out, m.Name())
	}
	return out
}

// Cleanup tears down plugin-owned registrations in reverse injection order.
func (s *ModuleSet) Cleanup() {
	for i := len(s.installed) - 1; i >= 0; i-- {
		s.installed[i].Cleanup()
	}
	s.installed = nil
}

// tableString reads a string field from a Lua table, or "".
func tableString(L *lua.LState, tbl *lua.LTable, key string) string {
	if s, ok := L.GetField(tbl, key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// tableInt reads an integer field from a Lua table, or 0.
func tableInt(L *lua.LState, tbl *lua.LTable, key string) int {
	if n, ok := L.GetField(tbl, key).(lua.LNumber); ok {
		return int(n)
	}
	return 0
}
