package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/logging"
	luabridge "github.com/dshills/polyglot/internal/plugin/lua"
	"github.com/dshills/polyglot/internal/plugin/security"
)

// ServiceProvider is the host surface for the shared service registry.
// *service.Registry satisfies it.
type ServiceProvider interface {
	// Register publishes a named value. Registration fails when the name
	// is taken.
	Register(name string, value any, source string) error

	// Get looks up a service by name.
	Get(name string) (any, bool)

	// Unregister removes a service by name.
	Unregister(name string) error

	// UnregisterBySource removes every service registered by source and
	// reports how many were removed.
	UnregisterBySource(source string) int

	// Names lists registered service names.
	Names() []string
}

// ServiceModule implements pg.service: register, get, unregister, list.
// Values cross the boundary as plain Go data, so a service published by one
// plugin is readable by any other.
type ServiceModule struct {
	ctx        *Context
	pluginName string
	logger     *logging.Logger
}

// NewServiceModule creates the service module for one plugin.
func NewServiceModule(ctx *Context, pluginName string) *ServiceModule {
	return &ServiceModule{
		ctx:        ctx,
		pluginName: pluginName,
		logger:     ctx.logger().WithComponent("api.service"),
	}
}

// Name returns "service".
func (m *ServiceModule) Name() string { return "service" }

// RequiredCapability returns the empty capability; services are ungated.
func (m *ServiceModule) RequiredCapability() security.Capability { return "" }

// Register installs the module under _pg_service.
func (m *ServiceModule) Register(L *lua.LState) error {
	tbl := L.NewTable()
	L.SetField(tbl, "register", L.NewFunction(m.register))
	L.SetField(tbl, "get", L.NewFunction(m.get))
	L.SetField(tbl, "unregister", L.NewFunction(m.unregister))
	L.SetField(tbl, "list", L.NewFunction(m.list))
	L.SetGlobal("_pg_service", tbl)
	return nil
}

func (m *ServiceModule) source() string {
	return "plugin:" + m.pluginName
}

// register(name, value) publishes a service. Raises on name collision.
func (m *ServiceModule) register(L *lua.LState) int {
	name := L.CheckString(1)
	value := luabridge.ToGo(L.Get(2))

	if m.ctx == nil || m.ctx.Services == nil {
		L.RaiseError("service provider not available")
		return 0
	}
	if err := m.ctx.Services.Register(name, value, m.source()); err != nil {
		L.RaiseError("register service %s: %s", name, err.Error())
		return 0
	}
	return 0
}

// get(name) pushes the service value, or nil when absent.
func (m *ServiceModule) get(L *lua.LState) int {
	name := L.CheckString(1)

	if m.ctx == nil || m.ctx.Services == nil {
		m.logger.Debug("service provider not available")
		L.Push(lua.LNil)
		return 1
	}
	value, ok := m.ctx.Services.Get(name)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(luabridge.ToLua(L, value))
	return 1
}

// unregister(name) removes a service and pushes whether it was removed.
func (m *ServiceModule) unregister(L *lua.LState) int {
	name := L.CheckString(1)

	if m.ctx == nil || m.ctx.Services == nil {
		m.logger.Debug("service provider not available")
		L.Push(lua.LFalse)
		return 1
	}
	if err := m.ctx.Services.Unregister(name); err != nil {
		m.logger.Debug("unregister service %s: %v", name, err)
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

// list() pushes an array of registered service names.
func (m *ServiceModule) list(L *lua.LState) int {
	if m.ctx == nil || m.ctx.Services == nil {
		m.logger.Debug("service provider not available")
		L.Push(L.NewTable())
		return 1
	}
	arr := L.NewTable()
	for _, name := range m.ctx.Services.Names() {
		arr.Append(lua.LString(name))
	}
	L.Push(arr)
	return 1
}

// Cleanup removes every service the plugin registered.
func (m *ServiceModule) Cleanup() {
	if m.ctx == nil || m.ctx.Services == nil {
		return
	}
	if n := m.ctx.Services.UnregisterBySource(m.source()); n > 0 {
		m.logger.Debug("removed %d services for plugin %s", n, m.pluginName)
	}
}
