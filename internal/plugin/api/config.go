package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/logging"
	luabridge "github.com/dshills/polyglot/internal/plugin/lua"
	"github.com/dshills/polyglot/internal/plugin/security"
)

// ConfigProvider is the host surface for configuration access.
// *config.Config satisfies it.
type ConfigProvider interface {
	// Get looks up a value by dotted path.
	Get(path string) (any, bool)

	// Set writes a value at a dotted path.
	Set(path string, value any) error
}

// ConfigModule implements pg.config: get, set.
type ConfigModule struct {
	ctx        *Context
	pluginName string
	logger     *logging.Logger
}

// NewConfigModule creates the config module for one plugin.
func NewConfigModule(ctx *Context, pluginName string) *ConfigModule {
	return &ConfigModule{
		ctx:        ctx,
		pluginName: pluginName,
		logger:     ctx.logger().WithComponent("api.config"),
	}
}

// Name returns "config".
func (m *ConfigModule) Name() string { return "config" }

// RequiredCapability returns the empty capability; config is ungated.
func (m *ConfigModule) RequiredCapability() security.Capability { return "" }

// Register installs the module under _pg_config.
func (m *ConfigModule) Register(L *lua.LState) error {
	tbl := L.NewTable()
	L.SetField(tbl, "get", L.NewFunction(m.get))
	L.SetField(tbl, "set", L.NewFunction(m.set))
	L.SetGlobal("_pg_config", tbl)
	return nil
}

// get(path [, default]) pushes the configured value, or the default when the
// path is unset.
func (m *ConfigModule) get(L *lua.LState) int {
	path := L.CheckString(1)
	def := L.Get(2)

	if m.ctx == nil || m.ctx.Config == nil {
		m.logger.Debug("config provider not available")
		L.Push(def)
		return 1
	}
	value, ok := m.ctx.Config.Get(path)
	if !ok {
		L.Push(def)
		return 1
	}
	L.Push(luabridge.ToLua(L, value))
	return 1
}

// set(path, value) pushes true, or false plus an error string.
func (m *ConfigModule) set(L *lua.LState) int {
	path := L.CheckString(1)
	value := luabridge.ToGo(L.Get(2))

	if m.ctx == nil || m.ctx.Config == nil {
		L.RaiseError("config provider not available")
		return 0
	}
	if err := m.ctx.Config.Set(path, value); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// Cleanup is a no-op; configuration writes persist past the plugin.
func (m *ConfigModule) Cleanup() {}
