package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSectionDefaults(t *testing.T) {
	cfg := New(WithUserConfigDir(t.TempDir()))

	wb := cfg.Workbench()
	if !wb.ActivityBarVisible || !wb.SidebarVisible {
		t.Errorf("workbench visibility defaults = %+v", wb)
	}
	if wb.PanelWidth != 32 {
		t.Errorf("PanelWidth = %d, want 32", wb.PanelWidth)
	}

	ex := cfg.Explorer()
	if ex.ShowHidden {
		t.Error("ShowHidden should default to false")
	}
	if !ex.AutoRefresh || !ex.ConfirmDelete {
		t.Errorf("explorer defaults = %+v", ex)
	}

	sc := cfg.Search()
	if sc.MaxResults != 1000 || sc.MaxFileSize != 1048576 || sc.ContextLines != 2 {
		t.Errorf("search defaults = %+v", sc)
	}

	if cfg.Theme().Name != "polyglot-dark" {
		t.Errorf("Theme().Name = %q", cfg.Theme().Name)
	}

	ty := cfg.Typography()
	if ty.BaseFontFamily != "Sans" || ty.BaseFontSize != 13 || ty.ScaleFactor != 1.0 {
		t.Errorf("typography defaults = %+v", ty)
	}

	pl := cfg.Plugins()
	if !pl.Enabled || !pl.AutoLoad {
		t.Errorf("plugins defaults = %+v", pl)
	}
	if len(pl.Dirs) != 0 {
		t.Errorf("Dirs = %v, want empty", pl.Dirs)
	}

	mt := cfg.MT()
	if mt.Provider != "anthropic" || mt.MaxTokens != 1024 || mt.TimeoutSeconds != 30 {
		t.Errorf("mt defaults = %+v", mt)
	}
	if mt.AnthropicAPIKey != "" || mt.OpenAIAPIKey != "" || mt.GeminiAPIKey != "" {
		t.Errorf("credentials should default empty, got %+v", mt)
	}

	lg := cfg.Logging()
	if lg.Level != "info" || lg.File != "" {
		t.Errorf("logging defaults = %+v", lg)
	}
}

func TestSectionsReflectFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[explorer]
showHidden = true
pattern = "*.po;*.pot"

[search]
maxResults = 250

[mt]
provider = "openai"

[plugins]
dirs = ["/opt/polyglot/plugins"]
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg := New(WithUserConfigDir(dir))
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load() = %v", err)
	}

	ex := cfg.Explorer()
	if !ex.ShowHidden || ex.Pattern != "*.po;*.pot" {
		t.Errorf("explorer = %+v", ex)
	}
	if got := cfg.Search().MaxResults; got != 250 {
		t.Errorf("MaxResults = %d, want 250", got)
	}
	if got := cfg.MT().Provider; got != "openai" {
		t.Errorf("Provider = %q, want openai", got)
	}
	dirs := cfg.Plugins().Dirs
	if len(dirs) != 1 || dirs[0] != "/opt/polyglot/plugins" {
		t.Errorf("Dirs = %v", dirs)
	}
}

func TestSectionTypeErrorRecorded(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[search]\nmaxResults = \"lots\"\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg := New(WithUserConfigDir(dir))
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load() = %v", err)
	}

	// Falls back to the default on type mismatch.
	if got := cfg.Search().MaxResults; got != 1000 {
		t.Errorf("MaxResults = %d, want default 1000", got)
	}

	errs := cfg.ConfigErrors()
	if _, ok := errs["search.maxResults"]; !ok {
		t.Errorf("ConfigErrors() = %v, want entry for search.maxResults", errs)
	}

	cfg.ClearConfigErrors()
	if cfg.ConfigErrors() != nil {
		t.Error("ConfigErrors() should be nil after clear")
	}
}

func TestSectionSliceSnapshot(t *testing.T) {
	cfg := New(WithUserConfigDir(t.TempDir()))
	if err := cfg.Set("plugins.dirs", []string{"/a", "/b"}); err != nil {
		t.Fatalf("Set = %v", err)
	}

	dirs := cfg.Plugins().Dirs
	dirs[0] = "/mutated"

	again := cfg.Plugins().Dirs
	if again[0] != "/a" {
		t.Errorf("section slice not a snapshot: %v", again)
	}
}
