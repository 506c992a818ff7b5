package theme

import (
	"errors"
	"path/filepath"
	"testing"
)

func testTheme(name string) *Theme {
	return &Theme{
		Name:    name,
		Version: "1.0.0",
		Colors: map[string]string{
			"background": "#101010",
			"foreground": "#f0f0f0",
		},
		Styles: map[string]map[string]string{
			"workbench": {"background": "$background"},
		},
	}
}

func TestManagerBuiltins(t *testing.T) {
	m := NewManager(nil, nil)

	want := []string{"high-contrast", "polyglot-dark", "polyglot-light"}
	got := m.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if cur := m.Current(); cur == nil || cur.Name != DefaultThemeName {
		t.Errorf("default current theme = %v, want %s", cur, DefaultThemeName)
	}
}

func TestManagerApply(t *testing.T) {
	m := NewManager(nil, nil)

	var notified []string
	m.Subscribe(func(th *Theme) { notified = append(notified, th.Name) })

	if err := m.Apply("polyglot-light"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if m.Current().Name != "polyglot-light" {
		t.Errorf("current = %q, want polyglot-light", m.Current().Name)
	}
	if len(notified) != 1 || notified[0] != "polyglot-light" {
		t.Errorf("observer notifications = %v, want exactly one", notified)
	}
}

func TestManagerApplyUnknown(t *testing.T) {
	m := NewManager(nil, nil)
	if err := m.Apply("no-such-theme"); !errors.Is(err, ErrThemeNotFound) {
		t.Errorf("Apply unknown = %v, want ErrThemeNotFound", err)
	}
}

func TestManagerUnsubscribe(t *testing.T) {
	m := NewManager(nil, nil)

	calls := 0
	unsub := m.Subscribe(func(*Theme) { calls++ })

	if err := m.Apply("polyglot-light"); err != nil {
		t.Fatal(err)
	}
	unsub()
	if err := m.Apply("polyglot-dark"); err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("observer called %d times, want 1", calls)
	}
}

func TestManagerRegisterValidation(t *testing.T) {
	m := NewManager(nil, nil)

	if err := m.Register(nil); !errors.Is(err, ErrNilTheme) {
		t.Errorf("Register(nil) = %v, want ErrNilTheme", err)
	}

	missingFg := testTheme("broken")
	delete(missingFg.Colors, "foreground")
	if err := m.Register(missingFg); !errors.Is(err, ErrMissingColorKey) {
		t.Errorf("Register without foreground = %v, want ErrMissingColorKey", err)
	}

	badColor := testTheme("broken")
	badColor.Colors["accent"] = "#12345"
	if err := m.Register(badColor); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("Register with 5-digit hex = %v, want ErrInvalidColor", err)
	}
}

func TestManagerRegisterReplacesCurrent(t *testing.T) {
	m := NewManager(nil, nil)
	custom := testTheme("custom")
	if err := m.Register(custom); err != nil {
		t.Fatal(err)
	}
	if err := m.Apply("custom"); err != nil {
		t.Fatal(err)
	}

	notified := 0
	m.Subscribe(func(*Theme) { notified++ })

	replacement := testTheme("custom")
	replacement.Colors["background"] = "#202020"
	if err := m.Register(replacement); err != nil {
		t.Fatal(err)
	}

	if notified != 1 {
		t.Errorf("replacing the current theme notified %d times, want 1", notified)
	}
	if got := m.Current().Colors["background"]; got != "#202020" {
		t.Errorf("current background = %q, want replacement value", got)
	}
}

func TestManagerExportImportRoundTrip(t *testing.T) {
	m := NewManager(nil, nil)

	data, err := m.Export("polyglot-dark")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	other := NewManager(nil, nil)
	imported, err := other.Import(data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported.Name != "polyglot-dark" {
		t.Errorf("imported name = %q", imported.Name)
	}
	if imported.Colors["background"] != PolyglotDark().Colors["background"] {
		t.Error("imported colors differ from the exported theme")
	}
}

func TestManagerExportFileImportFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exported.json")

	m := NewManager(nil, nil)
	if err := m.ExportFile("polyglot-light", path); err != nil {
		t.Fatalf("ExportFile: %v", err)
	}

	other := NewManager(nil, nil)
	imported, err := other.ImportFile(path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if imported.Name != "polyglot-light" {
		t.Errorf("imported name = %q", imported.Name)
	}
}

func TestThemeStyleResolution(t *testing.T) {
	th := PolyglotDark()

	style := th.Style("sidebar")
	if style == nil {
		t.Fatal("sidebar style missing")
	}
	if got := style["background"]; got != th.Colors["sidebar_background"] {
		t.Errorf("resolved background = %q, want %q", got, th.Colors["sidebar_background"])
	}

	if _, ok := th.StyleValue("no-such-component", "background"); ok {
		t.Error("unknown component should not resolve")
	}
}

func TestThemeClone(t *testing.T) {
	orig := PolyglotDark()
	clone := orig.Clone()

	clone.Colors["background"] = "#000001"
	if orig.Colors["background"] == "#000001" {
		t.Error("clone shares the colors map with the original")
	}
}
