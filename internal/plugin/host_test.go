package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/polyglot/internal/command"
	"github.com/dshills/polyglot/internal/event"
	"github.com/dshills/polyglot/internal/plugin/api"
	"github.com/dshills/polyglot/internal/plugin/security"
)

// newTestHost writes a plugin directory, discovers nothing, and builds a
// host directly over the given script and manifest fields.
func newTestHost(t *testing.T, script string, mutate func(*Manifest), ctx *api.Context) *Host {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "plugin.lua"), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	manifest := NewManifestMinimal("test", dir)
	manifest.Main = "plugin.lua"
	if mutate != nil {
		mutate(manifest)
	}
	if ctx == nil {
		ctx = &api.Context{}
	}

	host, err := NewHost(manifest, api.NewRegistry(ctx, nil).NewSet(manifest.Name), nil)
	if err != nil {
		t.Fatalf("NewHost() error = %v", err)
	}
	return host
}

func TestHostLoad(t *testing.T) {
	host := newTestHost(t, `
		function register(pg)
			registered = true
		end
		function probe()
			return registered
		end
	`, nil, nil)

	if host.State() != StateUnloaded {
		t.Fatalf("new host State() = %v, want unloaded", host.State())
	}
	if err := host.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if host.State() != StateLoaded {
		t.Errorf("State() = %v, want loaded", host.State())
	}
	if host.Error() != nil {
		t.Errorf("Error() = %v, want nil", host.Error())
	}

	results, err := host.Call("probe")
	if err != nil {
		t.Fatalf("Call(probe) error = %v", err)
	}
	if len(results) != 1 || results[0] != true {
		t.Errorf("probe() = %v, want [true]", results)
	}
}

func TestHostLoadTwice(t *testing.T) {
	host := newTestHost(t, registerScript, nil, nil)
	if err := host.Load(); err != nil {
		t.Fatal(err)
	}
	if err := host.Load(); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("second Load() = %v, want ErrAlreadyLoaded", err)
	}
	if host.State() != StateLoaded {
		t.Errorf("State() = %v after double load, want loaded", host.State())
	}
}

func TestHostNoRegisterIsRetryable(t *testing.T) {
	host := newTestHost(t, "local x = 1\n", nil, nil)

	err := host.Load()
	if !errors.Is(err, ErrNoRegister) {
		t.Fatalf("Load() = %v, want ErrNoRegister", err)
	}
	if host.State() != StateUnloaded {
		t.Errorf("State() = %v after failed load, want unloaded", host.State())
	}
	if !errors.Is(host.Error(), ErrNoRegister) {
		t.Errorf("Error() = %v, want ErrNoRegister", host.Error())
	}

	// Fixing the script makes the next attempt succeed.
	entry := host.Manifest().MainPath()
	if err := os.WriteFile(entry, []byte(registerScript), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := host.Load(); err != nil {
		t.Fatalf("Load() after fix = %v", err)
	}
	if host.State() != StateLoaded {
		t.Errorf("State() = %v, want loaded", host.State())
	}
	if host.Error() != nil {
		t.Errorf("Error() = %v after recovery, want nil", host.Error())
	}
}

func TestHostRegisterRaises(t *testing.T) {
	host := newTestHost(t, `
		function register(pg)
			error("boom")
		end
	`, nil, nil)

	err := host.Load()
	if !errors.Is(err, ErrRegisterFailed) {
		t.Fatalf("Load() = %v, want ErrRegisterFailed", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Load() error %q does not carry the Lua message", err)
	}
	if host.State() != StateUnloaded {
		t.Errorf("State() = %v, want unloaded", host.State())
	}
}

func TestHostEntryScriptError(t *testing.T) {
	host := newTestHost(t, "this is not lua\n", nil, nil)

	err := host.Load()
	if err == nil {
		t.Fatal("Load() succeeded on a broken entry script")
	}
	if !strings.Contains(err.Error(), "plugin.lua") {
		t.Errorf("Load() error %q does not name the entry script", err)
	}
	if host.State() != StateUnloaded {
		t.Errorf("State() = %v, want unloaded", host.State())
	}
}

func TestHostUnloadCallsUnregister(t *testing.T) {
	bus := event.NewBus()
	var topics []string
	if _, err := bus.Subscribe("plugin.test.bye", func(ev event.Event) {
		topics = append(topics, ev.Topic.String())
	}); err != nil {
		t.Fatal(err)
	}

	host := newTestHost(t, `
		function register(pg)
		end
		function unregister(pg)
			pg.event.emit("bye", {})
		end
	`, nil, &api.Context{Events: bus})

	if err := host.Load(); err != nil {
		t.Fatal(err)
	}
	host.Unload()

	if len(topics) != 1 {
		t.Fatalf("unregister emitted %d events, want 1", len(topics))
	}
	if host.State() != StateUnloaded {
		t.Errorf("State() = %v, want unloaded", host.State())
	}
	if host.HasFunction("unregister") {
		t.Error("HasFunction() = true after unload")
	}
	if _, err := host.Call("register"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Call() after unload = %v, want ErrNotLoaded", err)
	}

	// Idempotent.
	host.Unload()
}

func TestHostUnregisterErrorTolerated(t *testing.T) {
	host := newTestHost(t, `
		function register(pg)
		end
		function unregister(pg)
			error("refuses to go")
		end
	`, nil, nil)

	if err := host.Load(); err != nil {
		t.Fatal(err)
	}
	host.Unload()
	if host.State() != StateUnloaded {
		t.Errorf("State() = %v, want unloaded despite unregister error", host.State())
	}
}

func TestHostCallBridging(t *testing.T) {
	host := newTestHost(t, `
		function register(pg)
		end
		function add(a, b)
			return a + b
		end
		function greet(name)
			return "hello " .. name, true
		end
	`, nil, nil)

	if err := host.Load(); err != nil {
		t.Fatal(err)
	}

	results, err := host.Call("add", 2, 3)
	if err != nil {
		t.Fatalf("Call(add) error = %v", err)
	}
	if len(results) != 1 || results[0] != int64(5) {
		t.Errorf("add(2, 3) = %v, want [5]", results)
	}

	results, err = host.Call("greet", "world")
	if err != nil {
		t.Fatalf("Call(greet) error = %v", err)
	}
	if len(results) != 2 || results[0] != "hello world" || results[1] != true {
		t.Errorf("greet(world) = %v", results)
	}

	if _, err := host.Call("missing"); err == nil {
		t.Error("Call(missing) succeeded")
	}
}

func TestHostCapabilityGatesModules(t *testing.T) {
	script := `
		function register(pg)
			has_command = pg.command ~= nil
		end
		function probe()
			return has_command
		end
	`
	ctx := &api.Context{Commands: command.NewRegistry()}

	tests := []struct {
		name string
		caps []security.Capability
		want bool
	}{
		{name: "granted", caps: []security.Capability{security.CapabilityCommands}, want: true},
		{name: "withheld", caps: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newTestHost(t, script, func(m *Manifest) {
				m.Capabilities = tt.caps
			}, ctx)
			if err := host.Load(); err != nil {
				t.Fatal(err)
			}
			results, err := host.Call("probe")
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != 1 || results[0] != tt.want {
				t.Errorf("probe() = %v, want [%v]", results, tt.want)
			}
		})
	}
}

func TestNewHostNilManifest(t *testing.T) {
	if _, err := NewHost(nil, nil, nil); !errors.Is(err, ErrNilManifest) {
		t.Errorf("NewHost(nil) = %v, want ErrNilManifest", err)
	}
}
