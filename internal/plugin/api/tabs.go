package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/logging"
	"github.com/dshills/polyglot/internal/plugin/security"
	"github.com/dshills/polyglot/internal/workbench"
)

// TabsProvider is the host surface for document tab control.
// *workbench.TabManager satisfies it.
type TabsProvider interface {
	// Open opens a tab, or focuses the existing one for the same path.
	Open(title, path string) workbench.Tab

	// Close closes a tab by id.
	Close(id string) error

	// Active reports the active tab, if any.
	Active() (workbench.Tab, bool)

	// SetModified flags or clears a tab's modified marker.
	SetModified(id string, modified bool) error

	// Tabs lists all open tabs in strip order.
	Tabs() []workbench.Tab
}

// TabsModule implements pg.tabs: add, close, active, set_modified, list.
type TabsModule struct {
	ctx        *Context
	pluginName string
	L          *lua.LState
	logger     *logging.Logger
}

// NewTabsModule creates the tabs module for one plugin.
func NewTabsModule(ctx *Context, pluginName string) *TabsModule {
	return &TabsModule{
		ctx:        ctx,
		pluginName: pluginName,
		logger:     ctx.logger().WithComponent("api.tabs"),
	}
}

// Name returns "tabs".
func (m *TabsModule) Name() string { return "tabs" }

// RequiredCapability returns the tabs capability.
func (m *TabsModule) RequiredCapability() security.Capability {
	return security.CapabilityTabs
}

// Register installs the module under _pg_tabs.
func (m *TabsModule) Register(L *lua.LState) error {
	m.L = L
	tbl := L.NewTable()
	L.SetField(tbl, "add", L.NewFunction(m.add))
	L.SetField(tbl, "close", L.NewFunction(m.close))
	L.SetField(tbl, "active", L.NewFunction(m.active))
	L.SetField(tbl, "set_modified", L.NewFunction(m.setModified))
	L.SetField(tbl, "list", L.NewFunction(m.list))
	L.SetGlobal("_pg_tabs", tbl)
	return nil
}

// add(title [, path]) opens a tab and pushes its id.
func (m *TabsModule) add(L *lua.LState) int {
	title := L.CheckString(1)
	path := L.OptString(2, "")

	if m.ctx == nil || m.ctx.Tabs == nil {
		L.RaiseError("tabs provider not available")
		return 0
	}
	t := m.ctx.Tabs.Open(title, path)
	L.Push(lua.LString(t.ID))
	return 1
}

// close(id) pushes true, or false plus an error string.
func (m *TabsModule) close(L *lua.LState) int {
	id := L.CheckString(1)

	if m.ctx == nil || m.ctx.Tabs == nil {
		m.logger.Debug("tabs provider not available")
		L.Push(lua.LFalse)
		return 1
	}
	if err := m.ctx.Tabs.Close(id); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// active() pushes the active tab as a table, or nil when no tab is open.
func (m *TabsModule) active(L *lua.LState) int {
	if m.ctx == nil || m.ctx.Tabs == nil {
		m.logger.Debug("tabs provider not available")
		L.Push(lua.LNil)
		return 1
	}
	t, ok := m.ctx.Tabs.Active()
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(tabTable(L, t))
	return 1
}

// set_modified(id, modified) pushes true, or false plus an error string.
func (m *TabsModule) setModified(L *lua.LState) int {
	id := L.CheckString(1)
	modified := L.CheckBool(2)

	if m.ctx == nil || m.ctx.Tabs == nil {
		m.logger.Debug("tabs provider not available")
		L.Push(lua.LFalse)
		return 1
	}
	if err := m.ctx.Tabs.SetModified(id, modified); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// list() pushes an array of tab tables in strip order.
func (m *TabsModule) list(L *lua.LState) int {
	if m.ctx == nil || m.ctx.Tabs == nil {
		m.logger.Debug("tabs provider not available")
		L.Push(L.NewTable())
		return 1
	}
	arr := L.NewTable()
	for _, t := range m.ctx.Tabs.Tabs() {
		arr.Append(tabTable(L, t))
	}
	L.Push(arr)
	return 1
}

// Cleanup releases the Lua state reference. Open tabs outlive the plugin.
func (m *TabsModule) Cleanup() {
	m.L = nil
}

func tabTable(L *lua.LState, t workbench.Tab) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "id", lua.LString(t.ID))
	L.SetField(tbl, "title", lua.LString(t.Title))
	L.SetField(tbl, "path", lua.LString(t.Path))
	L.SetField(tbl, "modified", lua.LBool(t.Modified))
	return tbl
}
