package api

import (
	"encoding/json"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/logging"
	luabridge "github.com/dshills/polyglot/internal/plugin/lua"
	"github.com/dshills/polyglot/internal/plugin/security"
)

// UtilModule implements pg.util: log, json_encode, json_decode.
type UtilModule struct {
	ctx        *Context
	pluginName string
	logger     *logging.Logger
}

// NewUtilModule creates the util module for one plugin.
func NewUtilModule(ctx *Context, pluginName string) *UtilModule {
	return &UtilModule{
		ctx:        ctx,
		pluginName: pluginName,
		logger:     ctx.logger().WithComponent("plugin." + pluginName),
	}
}

// Name returns "util".
func (m *UtilModule) Name() string { return "util" }

// RequiredCapability returns the empty capability; util is ungated.
func (m *UtilModule) RequiredCapability() security.Capability { return "" }

// Register installs the module under _pg_util.
func (m *UtilModule) Register(L *lua.LState) error {
	tbl := L.NewTable()
	L.SetField(tbl, "log", L.NewFunction(m.log))
	L.SetField(tbl, "json_encode", L.NewFunction(m.jsonEncode))
	L.SetField(tbl, "json_decode", L.NewFunction(m.jsonDecode))
	L.SetGlobal("_pg_util", tbl)
	return nil
}

// log(message [, level]) writes to the host log under the plugin's
// component. Unknown levels log at info.
func (m *UtilModule) log(L *lua.LState) int {
	message := L.CheckString(1)
	level := L.OptString(2, "info")

	switch level {
	case "debug":
		m.logger.Debug("%s", message)
	case "warn", "warning":
		m.logger.Warn("%s", message)
	case "error":
		m.logger.Error("%s", message)
	default:
		m.logger.Info("%s", message)
	}
	return 0
}

// json_encode(value) pushes the JSON text, or nil plus an error string.
func (m *UtilModule) jsonEncode(L *lua.LState) int {
	value := luabridge.ToGo(L.Get(1))

	data, err := json.Marshal(value)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(data))
	return 1
}

// json_decode(text) pushes the decoded value, or nil plus an error string.
func (m *UtilModule) jsonDecode(L *lua.LState) int {
	text := L.CheckString(1)

	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(luabridge.ToLua(L, value))
	return 1
}

// Cleanup is a no-op.
func (m *UtilModule) Cleanup() {}
