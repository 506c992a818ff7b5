package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/polyglot/internal/event"
	"github.com/dshills/polyglot/internal/plugin/api"
)

func newTestManager(t *testing.T, root string, ctx *api.Context) *Manager {
	t.Helper()
	if ctx == nil {
		ctx = &api.Context{}
	}
	loader := NewLoader([]string{root}, nil)
	return NewManager(loader, api.NewRegistry(ctx, nil), nil)
}

func TestManagerLoadUnload(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "alpha", map[string]string{"plugin.lua": registerScript})

	m := newTestManager(t, root, nil)
	if _, err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	if err := m.Load("alpha"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
	if _, ok := m.Get("alpha"); !ok {
		t.Error("Get(alpha) missing after load")
	}

	infos := m.Plugins()
	if len(infos) != 1 || infos[0].State != StateLoaded {
		t.Errorf("Plugins() = %+v, want alpha loaded", infos)
	}

	if err := m.Unload("alpha"); err != nil {
		t.Fatalf("Unload() error = %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d after unload, want 0", m.Count())
	}
	if infos := m.Plugins(); infos[0].State != StateUnloaded {
		t.Errorf("State = %v after unload, want unloaded", infos[0].State)
	}
}

func TestManagerLoadUnknown(t *testing.T) {
	m := newTestManager(t, t.TempDir(), nil)
	if _, err := m.Discover(); err != nil {
		t.Fatal(err)
	}
	if err := m.Load("ghost"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Load(ghost) = %v, want ErrPluginNotFound", err)
	}
}

func TestManagerDoubleLoadDoesNotReRegister(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "alpha", map[string]string{"plugin.lua": `
		function register(pg)
			pg.event.emit("registered", {})
		end
	`})

	bus := event.NewBus()
	registrations := 0
	if _, err := bus.Subscribe("plugin.alpha.registered", func(event.Event) {
		registrations++
	}); err != nil {
		t.Fatal(err)
	}

	m := newTestManager(t, root, &api.Context{Events: bus})
	if _, err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	if err := m.Load("alpha"); err != nil {
		t.Fatal(err)
	}
	if err := m.Load("alpha"); err != nil {
		t.Errorf("Load() on loaded plugin = %v, want nil", err)
	}
	if registrations != 1 {
		t.Errorf("register ran %d times, want 1", registrations)
	}
}

func TestManagerRequirementMissing(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "needy", map[string]string{
		"plugin.json": `{"name": "needy", "version": "1.0.0", "requires": ["telepathy"]}`,
		"plugin.lua":  registerScript,
	})
	writePlugin(t, root, "modest", map[string]string{
		"plugin.json": `{"name": "modest", "version": "1.0.0", "requires": ["command", "event"]}`,
		"plugin.lua":  registerScript,
	})

	m := newTestManager(t, root, nil)
	if _, err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	if err := m.Load("needy"); !errors.Is(err, ErrRequirementMissing) {
		t.Errorf("Load(needy) = %v, want ErrRequirementMissing", err)
	}
	info, _ := m.loader.Get("needy")
	if !errors.Is(info.Error, ErrRequirementMissing) {
		t.Errorf("info.Error = %v, want ErrRequirementMissing", info.Error)
	}

	if err := m.Load("modest"); err != nil {
		t.Errorf("Load(modest) = %v, want nil for builtin requires", err)
	}
}

func TestManagerDependencies(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "alpha", map[string]string{"plugin.lua": registerScript})
	writePlugin(t, root, "beta", map[string]string{
		"plugin.json": `{"name": "beta", "version": "1.0.0", "dependencies": ["alpha"]}`,
		"plugin.lua":  registerScript,
	})
	writePlugin(t, root, "gamma", map[string]string{
		"plugin.json": `{"name": "gamma", "version": "1.0.0", "dependencies": ["delta"]}`,
		"plugin.lua":  registerScript,
	})

	m := newTestManager(t, root, nil)
	if _, err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	if err := m.Load("beta"); !errors.Is(err, ErrDependencyNotLoaded) {
		t.Errorf("Load(beta) before alpha = %v, want ErrDependencyNotLoaded", err)
	}
	if err := m.Load("alpha"); err != nil {
		t.Fatal(err)
	}
	if err := m.Load("beta"); err != nil {
		t.Errorf("Load(beta) after alpha = %v, want nil", err)
	}
	if err := m.Load("gamma"); !errors.Is(err, ErrDependencyNotFound) {
		t.Errorf("Load(gamma) = %v, want ErrDependencyNotFound", err)
	}
}

func TestManagerLoadAll(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "a", map[string]string{"plugin.lua": registerScript})
	writePlugin(t, root, "b", map[string]string{
		"plugin.json": `{"name": "b", "version": "1.0.0", "dependencies": ["a"]}`,
		"plugin.lua":  registerScript,
	})
	writePlugin(t, root, "c", map[string]string{
		"plugin.json": `{"name": "c", "version": "1.0.0", "dependencies": ["d"]}`,
		"plugin.lua":  registerScript,
	})

	m := newTestManager(t, root, nil)
	results := m.LoadAll()

	want := map[string]bool{"a": true, "b": true, "c": false}
	for name, ok := range want {
		if results[name] != ok {
			t.Errorf("LoadAll()[%q] = %v, want %v", name, results[name], ok)
		}
	}

	order := m.LoadOrder()
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("LoadOrder() = %v, want [a b]", order)
	}

	info, _ := m.loader.Get("c")
	if !errors.Is(info.Error, ErrDependencyNotFound) {
		t.Errorf("c Error = %v, want ErrDependencyNotFound", info.Error)
	}
}

func TestManagerUnloadAllReverseOrder(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "alpha", map[string]string{"plugin.lua": registerScript})
	writePlugin(t, root, "beta", map[string]string{
		"plugin.json": `{"name": "beta", "version": "1.0.0", "dependencies": ["alpha"]}`,
		"plugin.lua":  registerScript,
	})

	m := newTestManager(t, root, nil)
	m.LoadAll()

	var unloaded []string
	m.Subscribe(func(ev ManagerEvent) {
		if ev.Type == EventPluginUnloaded {
			unloaded = append(unloaded, ev.Plugin)
		}
	})

	m.UnloadAll()
	if len(unloaded) != 2 || unloaded[0] != "beta" || unloaded[1] != "alpha" {
		t.Errorf("unload order = %v, want [beta alpha]", unloaded)
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d after UnloadAll, want 0", m.Count())
	}
}

func TestManagerEvents(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "alpha", map[string]string{"plugin.lua": registerScript})
	writePlugin(t, root, "broken", map[string]string{"plugin.lua": "-- no register\n"})

	m := newTestManager(t, root, nil)
	if _, err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	var events []ManagerEvent
	unsubscribe := m.Subscribe(func(ev ManagerEvent) {
		events = append(events, ev)
	})

	if err := m.Load("alpha"); err != nil {
		t.Fatal(err)
	}
	if err := m.Load("broken"); err == nil {
		t.Fatal("Load(broken) succeeded")
	}
	if err := m.Unload("alpha"); err != nil {
		t.Fatal(err)
	}

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Type != EventPluginLoaded || events[0].Plugin != "alpha" {
		t.Errorf("events[0] = %+v, want alpha loaded", events[0])
	}
	if events[1].Type != EventPluginError || !errors.Is(events[1].Error, ErrNoRegister) {
		t.Errorf("events[1] = %+v, want broken error", events[1])
	}
	if events[2].Type != EventPluginUnloaded || events[2].Plugin != "alpha" {
		t.Errorf("events[2] = %+v, want alpha unloaded", events[2])
	}

	unsubscribe()
	if err := m.Load("alpha"); err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Errorf("handler still called after unsubscribe, got %d events", len(events))
	}
}

func TestManagerReload(t *testing.T) {
	root := t.TempDir()
	dir := writePlugin(t, root, "alpha", map[string]string{"plugin.lua": `
		function register(pg)
		end
		function version()
			return 1
		end
	`})

	m := newTestManager(t, root, nil)
	if _, err := m.Discover(); err != nil {
		t.Fatal(err)
	}
	if err := m.Load("alpha"); err != nil {
		t.Fatal(err)
	}

	host, _ := m.Get("alpha")
	results, err := host.Call("version")
	if err != nil {
		t.Fatal(err)
	}
	if results[0] != int64(1) {
		t.Fatalf("version() = %v, want 1", results[0])
	}

	next := `
		function register(pg)
		end
		function version()
			return 2
		end
	`
	if err := os.WriteFile(filepath.Join(dir, "plugin.lua"), []byte(next), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := m.Reload("alpha"); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	host, _ = m.Get("alpha")
	results, err = host.Call("version")
	if err != nil {
		t.Fatal(err)
	}
	if results[0] != int64(2) {
		t.Errorf("version() after reload = %v, want 2", results[0])
	}
}

func TestManagerValidate(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "good", map[string]string{"plugin.lua": registerScript})
	writePlugin(t, root, "assigned", map[string]string{"plugin.lua": "register = function(pg) end\n"})
	writePlugin(t, root, "bad", map[string]string{"plugin.lua": "local nothing = true\n"})
	vanishing := writePlugin(t, root, "vanishing", map[string]string{"plugin.lua": registerScript})

	m := newTestManager(t, root, nil)
	if _, err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	if err := m.Validate("good"); err != nil {
		t.Errorf("Validate(good) = %v, want nil", err)
	}
	if err := m.Validate("assigned"); err != nil {
		t.Errorf("Validate(assigned) = %v, want nil", err)
	}
	if err := m.Validate("bad"); !errors.Is(err, ErrNoRegister) {
		t.Errorf("Validate(bad) = %v, want ErrNoRegister", err)
	}
	if err := m.Validate("ghost"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Validate(ghost) = %v, want ErrPluginNotFound", err)
	}

	if err := os.Remove(filepath.Join(vanishing, "plugin.lua")); err != nil {
		t.Fatal(err)
	}
	if err := m.Validate("vanishing"); !errors.Is(err, ErrNoEntryPoint) {
		t.Errorf("Validate(vanishing) = %v, want ErrNoEntryPoint", err)
	}
}

func TestManagerUnloadStates(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "alpha", map[string]string{"plugin.lua": registerScript})

	m := newTestManager(t, root, nil)
	if _, err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	if err := m.Unload("alpha"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Unload(discovered) = %v, want ErrNotLoaded", err)
	}
	if err := m.Unload("ghost"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Unload(ghost) = %v, want ErrPluginNotFound", err)
	}
}
