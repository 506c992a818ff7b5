package api

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/logging"
	"github.com/dshills/polyglot/internal/plugin/security"
	"github.com/dshills/polyglot/internal/workbench"
)

// WorkbenchProvider is the host surface for activity and sidebar-panel
// registration.
type WorkbenchProvider interface {
	// RegisterActivity adds an activity-bar entry with its panel factory.
	RegisterActivity(cfg workbench.ActivityConfig, factory workbench.PanelFactory) error

	// UnregisterActivity removes an activity-bar entry.
	UnregisterActivity(id string) error

	// AddSidebarPanel registers a standalone sidebar panel.
	AddSidebarPanel(p workbench.Panel) error

	// RemoveSidebarPanel unregisters a sidebar panel.
	RemoveSidebarPanel(id string) error

	// ShowSidebarPanel displays a registered sidebar panel.
	ShowSidebarPanel(id string) error
}

// PanelModule implements pg.panel: register_activity, add_sidebar_panel,
// remove_sidebar_panel, show_sidebar_panel. Render functions are pinned in
// a global table; panels constructed for the workbench call back into them
// through luaPanel.
type PanelModule struct {
	ctx        *Context
	pluginName string
	L          *lua.LState
	handlerTbl *lua.LTable
	activities []string
	panels     []string
	logger     *logging.Logger
}

// NewPanelModule creates the panel module for one plugin.
func NewPanelModule(ctx *Context, pluginName string) *PanelModule {
	return &PanelModule{
		ctx:        ctx,
		pluginName: pluginName,
		logger:     ctx.logger().WithComponent("api.panel"),
	}
}

// Name returns "panel".
func (m *PanelModule) Name() string { return "panel" }

// RequiredCapability returns the panels capability.
func (m *PanelModule) RequiredCapability() security.Capability {
	return security.CapabilityPanels
}

// Register installs the module under _pg_panel.
func (m *PanelModule) Register(L *lua.LState) error {
	m.L = L
	m.handlerTbl = L.NewTable()
	L.SetGlobal(m.handlerKey(), m.handlerTbl)

	tbl := L.NewTable()
	L.SetField(tbl, "register_activity", L.NewFunction(m.registerActivity))
	L.SetField(tbl, "add_sidebar_panel", L.NewFunction(m.addSidebarPanel))
	L.SetField(tbl, "remove_sidebar_panel", L.NewFunction(m.removeSidebarPanel))
	L.SetField(tbl, "show_sidebar_panel", L.NewFunction(m.showSidebarPanel))
	L.SetGlobal("_pg_panel", tbl)
	return nil
}

func (m *PanelModule) handlerKey() string {
	return "_pg_panel_handlers_" + m.pluginName
}

// register_activity(opts) adds an activity-bar entry. opts carries id
// (required), icon, tooltip, shortcut, position, area, title, and an
// optional render function that becomes the activity's panel body.
func (m *PanelModule) registerActivity(L *lua.LState) int {
	opts := L.CheckTable(1)

	if m.ctx == nil || m.ctx.Workbench == nil {
		L.RaiseError("workbench provider not available")
		return 0
	}
	id := tableString(L, opts, "id")
	if id == "" {
		L.ArgError(1, "id is required")
		return 0
	}

	cfg := workbench.ActivityConfig{
		ID:       id,
		Icon:     tableString(L, opts, "icon"),
		Tooltip:  tableString(L, opts, "tooltip"),
		Shortcut: tableString(L, opts, "shortcut"),
		Position: tableInt(L, opts, "position"),
		Area:     tableString(L, opts, "area"),
		Enabled:  true,
	}
	title := tableString(L, opts, "title")
	if title == "" {
		title = cfg.Tooltip
	}
	if title == "" {
		title = id
	}

	var factory workbench.PanelFactory
	renderFn, hasRender := L.GetField(opts, "render").(*lua.LFunction)
	if hasRender {
		panel := m.newLuaPanel(id, title, "render:"+id)
		factory = func() (workbench.Panel, error) { return panel, nil }
	}

	if err := m.ctx.Workbench.RegisterActivity(cfg, factory); err != nil {
		L.RaiseError("register_activity %s: %s", id, err.Error())
		return 0
	}
	// Pin only after the workbench accepted the activity, so a failed
	// duplicate cannot clobber the original's render function.
	if hasRender {
		m.handlerTbl.RawSetString("render:"+id, renderFn)
	}
	m.activities = append(m.activities, id)
	return 0
}

// add_sidebar_panel(id, title, render) registers a standalone panel whose
// body comes from the render function.
func (m *PanelModule) addSidebarPanel(L *lua.LState) int {
	id := L.CheckString(1)
	title := L.CheckString(2)
	fn := L.CheckFunction(3)

	if m.ctx == nil || m.ctx.Workbench == nil {
		L.RaiseError("workbench provider not available")
		return 0
	}

	key := "render:" + id
	if err := m.ctx.Workbench.AddSidebarPanel(m.newLuaPanel(id, title, key)); err != nil {
		L.RaiseError("add_sidebar_panel %s: %s", id, err.Error())
		return 0
	}
	m.handlerTbl.RawSetString(key, fn)
	m.panels = append(m.panels, id)
	return 0
}

// remove_sidebar_panel(id) removes a panel this plugin added. Pushes false
// for unknown or foreign panels.
func (m *PanelModule) removeSidebarPanel(L *lua.LState) int {
	id := L.CheckString(1)

	if m.ctx == nil || m.ctx.Workbench == nil {
		m.logger.Debug("workbench provider not available")
		L.Push(lua.LFalse)
		return 1
	}
	idx := -1
	for i, own := range m.panels {
		if own == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		L.Push(lua.LFalse)
		return 1
	}

	if err := m.ctx.Workbench.RemoveSidebarPanel(id); err != nil {
		m.logger.Debug("remove panel %s: %v", id, err)
		L.Push(lua.LFalse)
		return 1
	}
	m.panels = append(m.panels[:idx], m.panels[idx+1:]...)
	if m.handlerTbl != nil {
		m.handlerTbl.RawSetString("render:"+id, lua.LNil)
	}
	L.Push(lua.LTrue)
	return 1
}

// show_sidebar_panel(id) displays any registered sidebar panel.
func (m *PanelModule) showSidebarPanel(L *lua.LState) int {
	id := L.CheckString(1)

	if m.ctx == nil || m.ctx.Workbench == nil {
		m.logger.Debug("workbench provider not available")
		L.Push(lua.LFalse)
		return 1
	}
	if err := m.ctx.Workbench.ShowSidebarPanel(id); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (m *PanelModule) newLuaPanel(id, title, key string) *luaPanel {
	return &luaPanel{
		BasePanel: workbench.NewBasePanel(id, title),
		module:    m,
		key:       key,
	}
}

// Cleanup removes the plugin's activities and panels and drops the pinned
// render functions.
func (m *PanelModule) Cleanup() {
	if m.ctx != nil && m.ctx.Workbench != nil {
		for _, id := range m.activities {
			if err := m.ctx.Workbench.UnregisterActivity(id); err != nil {
				m.logger.Debug("unregister activity %s: %v", id, err)
			}
		}
		for _, id := range m.panels {
			if err := m.ctx.Workbench.RemoveSidebarPanel(id); err != nil {
				m.logger.Debug("remove panel %s: %v", id, err)
			}
		}
	}
	m.activities = nil
	m.panels = nil
	if m.L != nil && m.handlerTbl != nil {
		m.L.SetGlobal(m.handlerKey(), lua.LNil)
	}
	m.handlerTbl = nil
	m.L = nil
}

// luaPanel renders sidebar content through a plugin-provided Lua function.
type luaPanel struct {
	workbench.BasePanel
	module *PanelModule
	key    string
}

// Lines calls the pinned render function with the available width. A string
// result is split on newlines; a table result is read as an array of lines.
// Render errors are logged and yield an empty body.
func (p *luaPanel) Lines(width int) []string {
	m := p.module
	if m == nil || m.L == nil || m.handlerTbl == nil {
		return nil
	}
	fn, ok := m.handlerTbl.RawGetString(p.key).(*lua.LFunction)
	if !ok {
		return nil
	}

	L := m.L
	L.Push(fn)
	L.Push(lua.LNumber(width))
	if err := L.PCall(1, 1, nil); err != nil {
		m.logger.Warn("panel %s render: %v", p.ID(), err)
		return nil
	}
	ret := L.Get(-1)
	L.Pop(1)

	switch v := ret.(type) {
	case lua.LString:
		return strings.Split(string(v), "\n")
	case *lua.LTable:
		lines := make([]string, 0, v.Len())
		for i := 1; i <= v.Len(); i++ {
			lines = append(lines, lua.LVAsString(v.RawGetInt(i)))
		}
		return lines
	default:
		return nil
	}
}
