package api

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/command"
)

func newCommandModule(t *testing.T) (*lua.LState, *CommandModule, *command.Registry) {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)

	reg := command.NewRegistry()
	m := NewCommandModule(&Context{Commands: reg}, "demo")
	if err := m.Register(L); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return L, m, reg
}

func TestCommandRegisterAndExecute(t *testing.T) {
	L, _, reg := newCommandModule(t)

	script := `
		captured = nil
		_pg_command.register("demo.hello", "Say Hello", function(args)
			captured = args.name
		end, { description = "greets the user", category = "demo" })
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("register script: %v", err)
	}

	cmd := reg.Get("demo.hello")
	if cmd == nil {
		t.Fatal("command not in registry")
	}
	if cmd.Source != "plugin:demo" {
		t.Errorf("Source = %q, want plugin:demo", cmd.Source)
	}
	if cmd.Description != "greets the user" {
		t.Errorf("Description = %q", cmd.Description)
	}
	if cmd.Category != "demo" {
		t.Errorf("Category = %q", cmd.Category)
	}

	if err := reg.Execute("demo.hello", map[string]any{"name": "ada"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := L.GetGlobal("captured").String(); got != "ada" {
		t.Errorf("captured = %q, want ada", got)
	}
}

func TestCommandHandlerError(t *testing.T) {
	L, _, reg := newCommandModule(t)

	if err := L.DoString(`_pg_command.register("demo.fail", "Fail", function() error("boom") end)`); err != nil {
		t.Fatalf("register script: %v", err)
	}
	err := reg.Execute("demo.fail", nil)
	if err == nil {
		t.Fatal("Execute error = nil, want handler failure")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Execute error = %v, want it to carry the Lua message", err)
	}
}

func TestCommandExecuteFromLua(t *testing.T) {
	L, _, _ := newCommandModule(t)

	script := `
		hits = 0
		_pg_command.register("demo.count", "Count", function(args)
			hits = hits + args.by
		end)
		local ok = _pg_command.execute("demo.count", { by = 2 })
		assert(ok == true, "execute should succeed")

		local ok2, err2 = _pg_command.execute("missing.command")
		assert(ok2 == nil, "unknown command pushes nil")
		assert(string.find(err2, "unknown command"), "error names the problem")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
	if got := L.GetGlobal("hits"); lua.LVAsNumber(got) != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
}

func TestCommandDuplicateRegisterRaises(t *testing.T) {
	L, _, reg := newCommandModule(t)

	if err := L.DoString(`_pg_command.register("demo.a", "A", function() ran = true end)`); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := L.DoString(`_pg_command.register("demo.a", "A again", function() end)`); err == nil {
		t.Fatal("duplicate register should raise")
	}

	// The original handler must survive the failed duplicate.
	if err := reg.Execute("demo.a", nil); err != nil {
		t.Fatalf("Execute after failed duplicate: %v", err)
	}
	if got := L.GetGlobal("ran"); got != lua.LTrue {
		t.Error("original handler did not run")
	}
}

func TestCommandUnregisterOwnedOnly(t *testing.T) {
	L, _, reg := newCommandModule(t)

	err := reg.Register(&command.Command{
		ID:      "host.quit",
		Title:   "Quit",
		Source:  "core",
		Handler: func(map[string]any) error { return nil },
	})
	if err != nil {
		t.Fatalf("host register: %v", err)
	}

	script := `
		_pg_command.register("demo.a", "A", function() end)
		assert(_pg_command.unregister("host.quit") == false, "foreign command")
		assert(_pg_command.unregister("demo.a") == true, "own command")
		assert(_pg_command.unregister("demo.a") == false, "already removed")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
	if !reg.Has("host.quit") {
		t.Error("foreign command was removed")
	}
	if reg.Has("demo.a") {
		t.Error("own command still registered")
	}
}

func TestCommandList(t *testing.T) {
	L, _, reg := newCommandModule(t)

	err := reg.Register(&command.Command{
		ID:      "host.quit",
		Title:   "Quit",
		Source:  "core",
		Handler: func(map[string]any) error { return nil },
	})
	if err != nil {
		t.Fatalf("host register: %v", err)
	}

	script := `
		_pg_command.register("demo.a", "A", function() end)
		local all = _pg_command.list()
		assert(#all == 2, "list() returns everything, got " .. #all)
		local mine = _pg_command.list("plugin:demo")
		assert(#mine == 1, "filtered list")
		assert(mine[1].id == "demo.a", "filtered entry id")
		assert(mine[1].source == "plugin:demo", "filtered entry source")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
}

func TestCommandCleanup(t *testing.T) {
	L, m, reg := newCommandModule(t)

	if err := L.DoString(`_pg_command.register("demo.a", "A", function() end)`); err != nil {
		t.Fatalf("register: %v", err)
	}
	m.Cleanup()

	if reg.Has("demo.a") {
		t.Error("command survived Cleanup")
	}
	if got := L.GetGlobal("_pg_command_handlers_demo"); got != lua.LNil {
		t.Errorf("handler table still pinned: %v", got)
	}
}

func TestCommandNilProvider(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	m := NewCommandModule(&Context{}, "demo")
	if err := m.Register(L); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := L.DoString(`_pg_command.register("demo.a", "A", function() end)`); err == nil {
		t.Error("register with nil provider should raise")
	}
	script := `
		local ok, err = _pg_command.execute("anything")
		assert(ok == nil, "execute degrades to nil")
		assert(string.find(err, "not available"), "error explains the provider is missing")
		assert(#_pg_command.list() == 0, "list degrades to empty")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("degraded script: %v", err)
	}
}
