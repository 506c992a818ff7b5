package api

import (
	"errors"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/event"
	"github.com/dshills/polyglot/internal/plugin/security"
)

func allCaps(security.Capability) bool { return true }

func noCaps(security.Capability) bool { return false }

func TestRegistryBuiltins(t *testing.T) {
	reg := NewRegistry(nil, nil)

	want := []string{"panel", "tabs", "command", "event", "service", "config", "ui", "util"}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !reg.Has("command") {
		t.Error("Has(command) = false, want true")
	}
	if reg.Has("nonexistent") {
		t.Error("Has(nonexistent) = true, want false")
	}
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry(nil, nil)

	factory := func(ctx *Context, plugin string) Module { return NewUtilModule(ctx, plugin) }
	if err := reg.Register("extra", factory); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !reg.Has("extra") {
		t.Error("Has(extra) = false after Register")
	}

	if err := reg.Register("extra", factory); !errors.Is(err, ErrModuleExists) {
		t.Errorf("duplicate Register error = %v, want ErrModuleExists", err)
	}
	if err := reg.Register("", factory); !errors.Is(err, ErrInvalidModule) {
		t.Errorf("empty name error = %v, want ErrInvalidModule", err)
	}
	if err := reg.Register("nilfactory", nil); !errors.Is(err, ErrInvalidModule) {
		t.Errorf("nil factory error = %v, want ErrInvalidModule", err)
	}
}

func TestModuleSetInject(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	reg := NewRegistry(&Context{Events: event.NewBus()}, nil)
	set := reg.NewSet("demo")

	pg, err := set.Inject(L, allCaps)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if pg == nil {
		t.Fatal("Inject returned nil table")
	}
	if got := len(set.Installed()); got != 8 {
		t.Fatalf("Installed() count = %d, want 8", got)
	}

	script := `
		local pg = require("pg")
		assert(pg.version == "1.0.0", "version")
		assert(pg.plugin == "demo", "plugin name")
		assert(type(pg.panel.register_activity) == "function", "panel module")
		assert(type(pg.tabs.add) == "function", "tabs module")
		assert(type(pg.command.register) == "function", "command module")
		assert(type(pg.event.on) == "function", "event module")
		assert(type(pg.service.register) == "function", "service module")
		assert(type(pg.config.get) == "function", "config module")
		assert(type(pg.ui.notify) == "function", "ui module")
		assert(type(pg.util.json_encode) == "function", "util module")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("pg table script: %v", err)
	}
}

func TestInjectCapabilityGating(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	reg := NewRegistry(nil, nil)
	set := reg.NewSet("demo")

	pg, err := set.Inject(L, noCaps)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	_ = pg

	want := []string{"event", "service", "config", "util"}
	got := set.Installed()
	if len(got) != len(want) {
		t.Fatalf("Installed() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Installed()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	script := `
		local pg = require("pg")
		assert(pg.panel == nil, "panel gated out")
		assert(pg.tabs == nil, "tabs gated out")
		assert(pg.command == nil, "command gated out")
		assert(pg.ui == nil, "ui gated out")
		assert(type(pg.event.on) == "function", "event stays")
		assert(type(pg.util.log) == "function", "util stays")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("gated pg script: %v", err)
	}
}

func TestInjectNilState(t *testing.T) {
	reg := NewRegistry(nil, nil)
	set := reg.NewSet("demo")

	if _, err := set.Inject(nil, allCaps); !errors.Is(err, ErrNilState) {
		t.Errorf("Inject(nil) error = %v, want ErrNilState", err)
	}
}

func TestModuleSetCleanup(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	reg := NewRegistry(&Context{Events: event.NewBus()}, nil)
	set := reg.NewSet("demo")
	if _, err := set.Inject(L, allCaps); err != nil {
		t.Fatalf("Inject: %v", err)
	}

	set.Cleanup()
	if got := len(set.Installed()); got != 0 {
		t.Errorf("Installed() count after Cleanup = %d, want 0", got)
	}
	if got := L.GetGlobal("_pg_command_handlers_demo"); got != lua.LNil {
		t.Errorf("handler table still pinned after Cleanup: %v", got)
	}
}
