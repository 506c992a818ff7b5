package command

import (
	"errors"
	"testing"
)

func TestRegistry_RegisterAndExecute(t *testing.T) {
	reg := NewRegistry()

	executed := false
	cmd := &Command{
		ID:     "explorer.refresh",
		Title:  "Refresh Explorer",
		Source: "core",
		Handler: func(args map[string]any) error {
			executed = true
			return nil
		},
	}

	if err := reg.Register(cmd); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if !reg.Has("explorer.refresh") {
		t.Error("Has('explorer.refresh') = false, expected true")
	}

	if err := reg.Execute("explorer.refresh", nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !executed {
		t.Error("handler was not executed")
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name    string
		cmd     *Command
		wantErr error
	}{
		{"nil command", nil, ErrNilCommand},
		{"empty ID", &Command{Title: "Something"}, ErrEmptyID},
		{"empty title", &Command{ID: "x.y"}, ErrEmptyTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.cmd)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register error = %v, expected %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_RegisterReplacesExisting(t *testing.T) {
	reg := NewRegistry()

	calls := ""
	first := &Command{
		ID:    "tabs.close",
		Title: "Close Tab",
		Handler: func(args map[string]any) error {
			calls += "first"
			return nil
		},
	}
	second := &Command{
		ID:    "tabs.close",
		Title: "Close Tab",
		Handler: func(args map[string]any) error {
			calls += "second"
			return nil
		},
	}

	if err := reg.Register(first); err != nil {
		t.Fatalf("Register first failed: %v", err)
	}
	if err := reg.Register(second); err != nil {
		t.Fatalf("Register second failed: %v", err)
	}

	if reg.Count() != 1 {
		t.Errorf("Count() = %d, expected 1", reg.Count())
	}

	if err := reg.Execute("tabs.close", nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if calls != "second" {
		t.Errorf("calls = %q, expected 'second'", calls)
	}
}

func TestRegistry_ExecuteUnknown(t *testing.T) {
	reg := NewRegistry()

	err := reg.Execute("does.not.exist", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Execute error = %v, expected ErrNotFound", err)
	}
}

func TestRegistry_ExecuteNoHandler(t *testing.T) {
	reg := NewRegistry()

	cmd := &Command{ID: "broken.cmd", Title: "Broken"}
	if err := reg.Register(cmd); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	err := reg.Execute("broken.cmd", nil)
	if !errors.Is(err, ErrNoHandler) {
		t.Errorf("Execute error = %v, expected ErrNoHandler", err)
	}
}

func TestRegistry_ExecuteClonesArgs(t *testing.T) {
	reg := NewRegistry()

	cmd := &Command{
		ID:    "search.run",
		Title: "Run Search",
		Handler: func(args map[string]any) error {
			args["mutated"] = true
			return nil
		},
	}
	if err := reg.Register(cmd); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	args := map[string]any{"query": "hello"}
	if err := reg.Execute("search.run", args); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if _, exists := args["mutated"]; exists {
		t.Error("caller's args map was modified")
	}
}

func TestRegistry_UnregisterBySource(t *testing.T) {
	reg := NewRegistry()

	commands := []*Command{
		{ID: "wc.count", Title: "Count Words", Source: "plugin:wordcount", Handler: noop},
		{ID: "wc.reset", Title: "Reset Count", Source: "plugin:wordcount", Handler: noop},
		{ID: "core.quit", Title: "Quit", Source: "core", Handler: noop},
	}
	if err := reg.RegisterAll(commands); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}

	removed := reg.UnregisterBySource("plugin:wordcount")
	if removed != 2 {
		t.Errorf("UnregisterBySource removed %d, expected 2", removed)
	}

	if reg.Has("wc.count") || reg.Has("wc.reset") {
		t.Error("plugin commands still registered after UnregisterBySource")
	}
	if !reg.Has("core.quit") {
		t.Error("core command removed by UnregisterBySource")
	}
}

func TestRegistry_AllSortedByTitle(t *testing.T) {
	reg := NewRegistry()

	commands := []*Command{
		{ID: "c", Title: "Zoom In", Handler: noop},
		{ID: "a", Title: "About", Handler: noop},
		{ID: "b", Title: "Open File", Handler: noop},
	}
	if err := reg.RegisterAll(commands); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}

	all := reg.All()
	if len(all) != 3 {
		t.Fatalf("All() returned %d commands, expected 3", len(all))
	}

	want := []string{"About", "Open File", "Zoom In"}
	for i, cmd := range all {
		if cmd.Title != want[i] {
			t.Errorf("All()[%d].Title = %q, expected %q", i, cmd.Title, want[i])
		}
	}
}

func TestRegistry_ByCategory(t *testing.T) {
	reg := NewRegistry()

	commands := []*Command{
		{ID: "f.open", Title: "Open", Category: "File", Handler: noop},
		{ID: "f.save", Title: "Save", Category: "File", Handler: noop},
		{ID: "v.zoom", Title: "Zoom", Category: "View", Handler: noop},
	}
	if err := reg.RegisterAll(commands); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}

	file := reg.ByCategory("File")
	if len(file) != 2 {
		t.Errorf("ByCategory('File') returned %d, expected 2", len(file))
	}
}

func TestRegistry_OnChange(t *testing.T) {
	reg := NewRegistry()

	changes := 0
	reg.OnChange(func() { changes++ })

	cmd := &Command{ID: "a.b", Title: "AB", Handler: noop}
	if err := reg.Register(cmd); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if changes != 1 {
		t.Errorf("changes after Register = %d, expected 1", changes)
	}

	reg.Unregister("a.b")
	if changes != 2 {
		t.Errorf("changes after Unregister = %d, expected 2", changes)
	}

	// Unregistering a missing command should not notify.
	reg.Unregister("missing")
	if changes != 2 {
		t.Errorf("changes after no-op Unregister = %d, expected 2", changes)
	}
}

func noop(args map[string]any) error { return nil }
