package workbench

import (
	"errors"
	"testing"
)

type recordingSidebarView struct {
	shown   []string
	cleared int
	width   int
	visible []bool
}

func (v *recordingSidebarView) ShowPanel(p Panel) { v.shown = append(v.shown, p.ID()) }

func (v *recordingSidebarView) Clear() { v.cleared++ }

func (v *recordingSidebarView) SetWidth(w int) { v.width = w }

func (v *recordingSidebarView) SetVisible(b bool) { v.visible = append(v.visible, b) }

func TestSidebarAddPanel(t *testing.T) {
	s := NewSidebarManager(nil)
	if err := s.AddPanel(newRecordPanel("explorer", nil)); err != nil {
		t.Fatalf("AddPanel: %v", err)
	}
	if !s.HasPanel("explorer") {
		t.Error("HasPanel(explorer) = false, want true")
	}
	if _, ok := s.Panel("explorer"); !ok {
		t.Error("Panel(explorer) not found")
	}
}

func TestSidebarAddPanelInvalid(t *testing.T) {
	s := NewSidebarManager(nil)
	if err := s.AddPanel(nil); !errors.Is(err, ErrNilPanel) {
		t.Errorf("AddPanel(nil) = %v, want ErrNilPanel", err)
	}
	if err := s.AddPanel(newRecordPanel("", nil)); !errors.Is(err, ErrEmptyPanelID) {
		t.Errorf("AddPanel empty id = %v, want ErrEmptyPanelID", err)
	}
}

func TestSidebarAddPanelDuplicate(t *testing.T) {
	s := NewSidebarManager(nil)
	if err := s.AddPanel(newRecordPanel("x", nil)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPanel(newRecordPanel("x", nil)); !errors.Is(err, ErrPanelExists) {
		t.Errorf("duplicate AddPanel = %v, want ErrPanelExists", err)
	}
}

func TestSidebarShowPanel(t *testing.T) {
	s := NewSidebarManager(nil)
	p := newRecordPanel("explorer", nil)
	if err := s.AddPanel(p); err != nil {
		t.Fatal(err)
	}

	if err := s.ShowPanel("explorer"); err != nil {
		t.Fatalf("ShowPanel: %v", err)
	}
	if s.ActivePanel() != Panel(p) {
		t.Error("ActivePanel is not the shown panel")
	}
	if !p.Visible() {
		t.Error("panel not visible after ShowPanel")
	}
	if !s.Visible() {
		t.Error("sidebar not visible after ShowPanel")
	}
}

func TestSidebarShowPanelUnknown(t *testing.T) {
	s := NewSidebarManager(nil)
	if err := s.ShowPanel("ghost"); !errors.Is(err, ErrPanelNotFound) {
		t.Errorf("ShowPanel unknown = %v, want ErrPanelNotFound", err)
	}
}

func TestSidebarDisplayHidesPrevious(t *testing.T) {
	s := NewSidebarManager(nil)
	var journal []string
	pa := newRecordPanel("a", &journal)
	pb := newRecordPanel("b", &journal)

	s.Display(pa)
	journal = journal[:0]
	s.Display(pb)

	want := []string{"hide:a", "show:b"}
	if len(journal) != len(want) {
		t.Fatalf("journal = %v, want %v", journal, want)
	}
	for i := range want {
		if journal[i] != want[i] {
			t.Errorf("journal[%d] = %q, want %q", i, journal[i], want[i])
		}
	}
}

func TestSidebarDisplaySamePanel(t *testing.T) {
	s := NewSidebarManager(nil)
	var journal []string
	p := newRecordPanel("a", &journal)

	s.Display(p)
	s.Display(p)

	for _, entry := range journal {
		if entry == "hide:a" {
			t.Fatalf("journal = %v; re-displaying the same panel must not hide it", journal)
		}
	}
	if s.ActivePanel() != Panel(p) {
		t.Error("ActivePanel changed")
	}
}

func TestSidebarClear(t *testing.T) {
	s := NewSidebarManager(nil)
	p := newRecordPanel("a", nil)
	s.Display(p)

	s.Clear()

	if s.ActivePanel() != nil {
		t.Error("ActivePanel != nil after Clear")
	}
	if p.Visible() {
		t.Error("panel still visible after Clear")
	}
	if s.Visible() {
		t.Error("sidebar still visible after Clear")
	}
}

func TestSidebarRemoveActivePanel(t *testing.T) {
	s := NewSidebarManager(nil)
	p := newRecordPanel("a", nil)
	if err := s.AddPanel(p); err != nil {
		t.Fatal(err)
	}
	if err := s.ShowPanel("a"); err != nil {
		t.Fatal(err)
	}

	if err := s.RemovePanel("a"); err != nil {
		t.Fatalf("RemovePanel: %v", err)
	}
	if s.ActivePanel() != nil {
		t.Error("removed panel still displayed")
	}
	if s.HasPanel("a") {
		t.Error("removed panel still registered")
	}

	if err := s.RemovePanel("a"); !errors.Is(err, ErrPanelNotFound) {
		t.Errorf("RemovePanel again = %v, want ErrPanelNotFound", err)
	}
}

func TestSidebarWidthClamp(t *testing.T) {
	s := NewSidebarManager(nil)
	if s.Width() != DefaultPanelWidth {
		t.Errorf("default width = %d, want %d", s.Width(), DefaultPanelWidth)
	}

	tests := []struct {
		in, want int
	}{
		{5, MinPanelWidth},
		{999, MaxPanelWidth},
		{48, 48},
	}
	for _, tt := range tests {
		s.SetWidth(tt.in)
		if got := s.Width(); got != tt.want {
			t.Errorf("SetWidth(%d): Width = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSidebarSetVisible(t *testing.T) {
	s := NewSidebarManager(nil)
	p := newRecordPanel("a", nil)
	s.Display(p)

	s.SetVisible(false)
	if s.Visible() {
		t.Error("sidebar visible after SetVisible(false)")
	}
	if p.Visible() {
		t.Error("panel visible while sidebar hidden")
	}
	if s.ActivePanel() != Panel(p) {
		t.Error("hiding the sidebar dropped the displayed panel")
	}

	s.SetVisible(true)
	if !p.Visible() {
		t.Error("panel not re-shown after SetVisible(true)")
	}
}

func TestSidebarPanelsSorted(t *testing.T) {
	s := NewSidebarManager(nil)
	for _, id := range []string{"search", "explorer", "outline"} {
		if err := s.AddPanel(newRecordPanel(id, nil)); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"explorer", "outline", "search"}
	got := s.Panels()
	if len(got) != len(want) {
		t.Fatalf("Panels() returned %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID() != want[i] {
			t.Errorf("Panels()[%d] = %q, want %q", i, got[i].ID(), want[i])
		}
	}
}

func TestSidebarSetViewReplays(t *testing.T) {
	s := NewSidebarManager(nil)
	s.SetWidth(44)
	p := newRecordPanel("a", nil)
	s.Display(p)

	view := &recordingSidebarView{}
	s.SetView(view)

	if view.width != 44 {
		t.Errorf("replayed width = %d, want 44", view.width)
	}
	if len(view.shown) != 1 || view.shown[0] != "a" {
		t.Errorf("replayed panel = %v, want [a]", view.shown)
	}
}
