package workbench

import (
	"errors"
	"testing"

	"github.com/dshills/polyglot/internal/event"
)

type recordingTabView struct {
	added   []string
	removed []string
	active  []string
	updated []Tab
}

func (v *recordingTabView) AddTab(t Tab) { v.added = append(v.added, t.ID) }

func (v *recordingTabView) RemoveTab(id string) { v.removed = append(v.removed, id) }

func (v *recordingTabView) SetActive(id string) { v.active = append(v.active, id) }

func (v *recordingTabView) UpdateTab(t Tab) { v.updated = append(v.updated, t) }

func TestTabOpenActivates(t *testing.T) {
	m := NewTabManager(nil, nil)

	tab := m.Open("Guide", "/doc/guide.po")
	if tab.ID == "" {
		t.Fatal("Open returned tab with empty id")
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}
	active, ok := m.Active()
	if !ok || active.ID != tab.ID {
		t.Errorf("Active = %+v/%v, want the opened tab", active, ok)
	}
}

func TestTabOpenDefaultsTitle(t *testing.T) {
	m := NewTabManager(nil, nil)

	tab := m.Open("", "/po/de/messages.po")
	if tab.Title != "messages.po" {
		t.Errorf("Title = %q, want messages.po", tab.Title)
	}

	tab = m.Open("", "")
	if tab.Title != "untitled" {
		t.Errorf("Title = %q, want untitled", tab.Title)
	}
}

func TestTabOpenSamePathFocuses(t *testing.T) {
	m := NewTabManager(nil, nil)

	first := m.Open("a", "/x.po")
	m.Open("b", "/y.po")

	again := m.Open("", "/x.po")
	if again.ID != first.ID {
		t.Errorf("reopening path returned tab %q, want %q", again.ID, first.ID)
	}
	if m.Count() != 2 {
		t.Errorf("Count = %d, want 2 (no duplicate tab)", m.Count())
	}
	active, _ := m.Active()
	if active.ID != first.ID {
		t.Errorf("Active = %q, want refocused tab %q", active.ID, first.ID)
	}
}

func TestTabCloseActivatesNeighbor(t *testing.T) {
	m := NewTabManager(nil, nil)
	a := m.Open("a", "/a")
	b := m.Open("b", "/b")
	c := m.Open("c", "/c")

	if err := m.Activate(b.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(b.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	active, _ := m.Active()
	if active.ID != c.ID {
		t.Errorf("after closing middle tab, Active = %q, want %q", active.Title, "c")
	}

	if err := m.Close(c.ID); err != nil {
		t.Fatal(err)
	}
	active, _ = m.Active()
	if active.ID != a.ID {
		t.Errorf("after closing last tab, Active = %q, want %q", active.Title, "a")
	}
}

func TestTabCloseInactiveKeepsActive(t *testing.T) {
	m := NewTabManager(nil, nil)
	a := m.Open("a", "/a")
	b := m.Open("b", "/b")

	if err := m.Close(a.ID); err != nil {
		t.Fatal(err)
	}
	active, _ := m.Active()
	if active.ID != b.ID {
		t.Errorf("Active = %q, want b", active.Title)
	}
}

func TestTabCloseLast(t *testing.T) {
	m := NewTabManager(nil, nil)
	tab := m.Open("only", "")

	if err := m.Close(tab.ID); err != nil {
		t.Fatal(err)
	}
	if m.Count() != 0 {
		t.Errorf("Count = %d, want 0", m.Count())
	}
	if _, ok := m.Active(); ok {
		t.Error("Active reports a tab after the last one closed")
	}
}

func TestTabCloseUnknown(t *testing.T) {
	m := NewTabManager(nil, nil)
	if err := m.Close("ghost"); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("Close unknown = %v, want ErrTabNotFound", err)
	}
	if err := m.Activate("ghost"); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("Activate unknown = %v, want ErrTabNotFound", err)
	}
}

func TestTabSetModified(t *testing.T) {
	m := NewTabManager(nil, nil)
	view := &recordingTabView{}
	m.SetView(view)

	tab := m.Open("doc", "/doc.po")
	if err := m.SetModified(tab.ID, true); err != nil {
		t.Fatalf("SetModified: %v", err)
	}

	got, _ := m.Get(tab.ID)
	if !got.Modified {
		t.Error("tab not marked modified")
	}
	if len(view.updated) != 1 || !view.updated[0].Modified {
		t.Errorf("view updates = %+v, want one modified tab", view.updated)
	}

	if err := m.SetModified("ghost", true); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("SetModified unknown = %v, want ErrTabNotFound", err)
	}
}

func TestTabsOrder(t *testing.T) {
	m := NewTabManager(nil, nil)
	m.Open("first", "/1")
	m.Open("second", "/2")
	m.Open("third", "/3")

	want := []string{"first", "second", "third"}
	tabs := m.Tabs()
	if len(tabs) != len(want) {
		t.Fatalf("Tabs() returned %d, want %d", len(tabs), len(want))
	}
	for i := range want {
		if tabs[i].Title != want[i] {
			t.Errorf("Tabs()[%d] = %q, want %q", i, tabs[i].Title, want[i])
		}
	}
}

func TestTabEvents(t *testing.T) {
	bus := event.NewBus()
	m := NewTabManager(bus, nil)

	var topics []string
	if _, err := bus.Subscribe("tab.*", func(ev event.Event) {
		topics = append(topics, ev.Topic.String())
	}); err != nil {
		t.Fatal(err)
	}

	tab := m.Open("doc", "/doc.po")
	if err := m.Close(tab.ID); err != nil {
		t.Fatal(err)
	}

	want := []string{"tab.opened", "tab.activated", "tab.closed"}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v, want %v", topics, want)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Errorf("topics[%d] = %q, want %q", i, topics[i], want[i])
		}
	}
}

func TestTabSetViewReplays(t *testing.T) {
	m := NewTabManager(nil, nil)
	a := m.Open("a", "/a")
	m.Open("b", "/b")
	if err := m.Activate(a.ID); err != nil {
		t.Fatal(err)
	}

	view := &recordingTabView{}
	m.SetView(view)

	if len(view.added) != 2 {
		t.Fatalf("replayed tabs = %v, want 2", view.added)
	}
	if len(view.active) != 1 || view.active[0] != a.ID {
		t.Errorf("replayed active = %v, want [%s]", view.active, a.ID)
	}
}
