package api

import (
	"fmt"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/workbench"
)

type fakeWorkbench struct {
	activities map[string]workbench.ActivityConfig
	factories  map[string]workbench.PanelFactory
	panels     map[string]workbench.Panel
	shown      []string
}

func newFakeWorkbench() *fakeWorkbench {
	return &fakeWorkbench{
		activities: make(map[string]workbench.ActivityConfig),
		factories:  make(map[string]workbench.PanelFactory),
		panels:     make(map[string]workbench.Panel),
	}
}

func (f *fakeWorkbench) RegisterActivity(cfg workbench.ActivityConfig, factory workbench.PanelFactory) error {
	if _, exists := f.activities[cfg.ID]; exists {
		return fmt.Errorf("activity %q exists", cfg.ID)
	}
	f.activities[cfg.ID] = cfg
	f.factories[cfg.ID] = factory
	return nil
}

func (f *fakeWorkbench) UnregisterActivity(id string) error {
	if _, ok := f.activities[id]; !ok {
		return fmt.Errorf("activity %q not found", id)
	}
	delete(f.activities, id)
	delete(f.factories, id)
	return nil
}

func (f *fakeWorkbench) AddSidebarPanel(p workbench.Panel) error {
	if _, exists := f.panels[p.ID()]; exists {
		return fmt.Errorf("panel %q exists", p.ID())
	}
	f.panels[p.ID()] = p
	return nil
}

func (f *fakeWorkbench) RemoveSidebarPanel(id string) error {
	if _, ok := f.panels[id]; !ok {
		return fmt.Errorf("panel %q not found", id)
	}
	delete(f.panels, id)
	return nil
}

func (f *fakeWorkbench) ShowSidebarPanel(id string) error {
	if _, ok := f.panels[id]; !ok {
		return fmt.Errorf("panel %q not found", id)
	}
	f.shown = append(f.shown, id)
	return nil
}

func newPanelModule(t *testing.T) (*lua.LState, *PanelModule, *fakeWorkbench) {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)

	wb := newFakeWorkbench()
	m := NewPanelModule(&Context{Workbench: wb}, "demo")
	if err := m.Register(L); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return L, m, wb
}

func TestPanelRegisterActivity(t *testing.T) {
	L, _, wb := newPanelModule(t)

	script := `
		_pg_panel.register_activity({
			id = "todo",
			icon = "T",
			tooltip = "Todo List",
			shortcut = "ctrl+shift+t",
			position = 3,
			render = function(width)
				return "item one\nitem two"
			end,
		})
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}

	cfg, ok := wb.activities["todo"]
	if !ok {
		t.Fatal("activity not registered")
	}
	if cfg.Icon != "T" || cfg.Tooltip != "Todo List" || cfg.Position != 3 {
		t.Errorf("config = %+v", cfg)
	}
	if !cfg.Enabled {
		t.Error("activity should register enabled")
	}

	factory := wb.factories["todo"]
	if factory == nil {
		t.Fatal("no panel factory captured")
	}
	p, err := factory()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if p.Title() != "Todo List" {
		t.Errorf("panel title = %q, want tooltip fallback", p.Title())
	}
	lines := p.Lines(40)
	if len(lines) != 2 || lines[0] != "item one" || lines[1] != "item two" {
		t.Errorf("Lines = %v", lines)
	}
}

func TestPanelRegisterActivityRequiresID(t *testing.T) {
	L, _, _ := newPanelModule(t)

	if err := L.DoString(`_pg_panel.register_activity({ icon = "X" })`); err == nil {
		t.Error("register_activity without id should raise")
	}
}

func TestPanelRenderWidthAndTable(t *testing.T) {
	L, _, wb := newPanelModule(t)

	script := `
		_pg_panel.add_sidebar_panel("ruler", "Ruler", function(width)
			return { "w=" .. width, "second" }
		end)
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}

	p := wb.panels["ruler"]
	if p == nil {
		t.Fatal("panel not added")
	}
	lines := p.Lines(32)
	if len(lines) != 2 || lines[0] != "w=32" || lines[1] != "second" {
		t.Errorf("Lines = %v", lines)
	}
}

func TestPanelRenderErrorYieldsEmpty(t *testing.T) {
	L, _, wb := newPanelModule(t)

	if err := L.DoString(`_pg_panel.add_sidebar_panel("bad", "Bad", function() error("render broke") end)`); err != nil {
		t.Fatalf("script: %v", err)
	}
	if lines := wb.panels["bad"].Lines(10); lines != nil {
		t.Errorf("Lines = %v, want nil on render error", lines)
	}
}

func TestPanelRemoveOwnedOnly(t *testing.T) {
	L, _, wb := newPanelModule(t)

	hostPanel := workbench.NewBasePanel("host", "Host")
	wb.panels["host"] = &hostPanel

	script := `
		_pg_panel.add_sidebar_panel("mine", "Mine", function() return "" end)
		assert(_pg_panel.remove_sidebar_panel("host") == false, "foreign panel")
		assert(_pg_panel.remove_sidebar_panel("mine") == true, "own panel")
		assert(_pg_panel.remove_sidebar_panel("mine") == false, "already removed")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
	if _, ok := wb.panels["host"]; !ok {
		t.Error("foreign panel was removed")
	}
	if _, ok := wb.panels["mine"]; ok {
		t.Error("own panel still present")
	}
}

func TestPanelShow(t *testing.T) {
	L, _, wb := newPanelModule(t)

	script := `
		_pg_panel.add_sidebar_panel("mine", "Mine", function() return "" end)
		assert(_pg_panel.show_sidebar_panel("mine") == true, "show known panel")
		local ok, err = _pg_panel.show_sidebar_panel("ghost")
		assert(ok == false, "show unknown panel")
		assert(err ~= nil, "error string for unknown panel")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
	if len(wb.shown) != 1 || wb.shown[0] != "mine" {
		t.Errorf("shown = %v", wb.shown)
	}
}

func TestPanelDuplicateKeepsOriginalRender(t *testing.T) {
	L, _, wb := newPanelModule(t)

	if err := L.DoString(`_pg_panel.add_sidebar_panel("p", "P", function() return "original" end)`); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := L.DoString(`_pg_panel.add_sidebar_panel("p", "P2", function() return "usurper" end)`); err == nil {
		t.Fatal("duplicate add should raise")
	}

	lines := wb.panels["p"].Lines(10)
	if len(lines) != 1 || lines[0] != "original" {
		t.Errorf("Lines = %v, want the original render output", lines)
	}
}

func TestPanelCleanup(t *testing.T) {
	L, m, wb := newPanelModule(t)

	script := `
		_pg_panel.register_activity({ id = "todo", render = function() return "" end })
		_pg_panel.add_sidebar_panel("scratch", "Scratch", function() return "" end)
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
	m.Cleanup()

	if len(wb.activities) != 0 {
		t.Errorf("activities after Cleanup = %v", wb.activities)
	}
	if len(wb.panels) != 0 {
		t.Errorf("panels after Cleanup = %v", wb.panels)
	}
	if got := L.GetGlobal("_pg_panel_handlers_demo"); got != lua.LNil {
		t.Errorf("handler table still pinned: %v", got)
	}
}

func TestPanelNilProviderRaises(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	m := NewPanelModule(&Context{}, "demo")
	if err := m.Register(L); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := L.DoString(`_pg_panel.register_activity({ id = "x" })`); err == nil {
		t.Error("register_activity with nil provider should raise")
	}
	if err := L.DoString(`assert(_pg_panel.show_sidebar_panel("x") == false)`); err != nil {
		t.Errorf("show degrades to false: %v", err)
	}
}
