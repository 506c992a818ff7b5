package workbench

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/polyglot/internal/event"
	"github.com/dshills/polyglot/internal/logging"
)

// Tab is one open document in the tab strip.
type Tab struct {
	ID       string
	Title    string
	Path     string
	Modified bool
}

// TabView is the tab-strip rendering collaborator.
type TabView interface {
	AddTab(t Tab)
	RemoveTab(id string)
	SetActive(id string)
	UpdateTab(t Tab)
}

// TabManager owns the ordered tab list and the active tab.
type TabManager struct {
	mu     sync.RWMutex
	tabs   []*Tab
	active string
	view   TabView

	bus    *event.Bus
	logger *logging.Logger
}

// NewTabManager creates an empty tab strip. The bus is optional.
func NewTabManager(bus *event.Bus, logger *logging.Logger) *TabManager {
	if logger == nil {
		logger = logging.Null
	}
	return &TabManager{
		bus:    bus,
		logger: logger.WithComponent("tabs"),
	}
}

// Open appends a tab and makes it active. Opening a path that is already
// open focuses the existing tab instead of duplicating it.
func (m *TabManager) Open(title, path string) Tab {
	m.mu.Lock()
	if path != "" {
		for _, t := range m.tabs {
			if t.Path == path {
				existing := *t
				m.mu.Unlock()
				if err := m.Activate(existing.ID); err != nil {
					m.logger.Debug("focus tab %s: %v", existing.ID, err)
				}
				return existing
			}
		}
	}
	if title == "" {
		if path != "" {
			title = filepath.Base(path)
		} else {
			title = "untitled"
		}
	}
	t := &Tab{ID: uuid.NewString(), Title: title, Path: path}
	m.tabs = append(m.tabs, t)
	tab := *t
	view := m.view
	m.mu.Unlock()

	if view != nil {
		view.AddTab(tab)
	}
	m.logger.Debug("tab opened: %s (%s)", tab.Title, tab.ID)
	m.emit("tab.opened", map[string]any{"id": tab.ID, "title": tab.Title, "path": tab.Path})

	if err := m.Activate(tab.ID); err != nil {
		m.logger.Debug("activate tab %s: %v", tab.ID, err)
	}
	return tab
}

// Close removes a tab. Closing the active tab activates its neighbor,
// preferring the tab that takes over the closed tab's slot.
func (m *TabManager) Close(id string) error {
	m.mu.Lock()
	idx := -1
	for i, t := range m.tabs {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("close tab %q: %w", id, ErrTabNotFound)
	}
	closed := *m.tabs[idx]
	m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)

	next := ""
	if m.active == id {
		m.active = ""
		if len(m.tabs) > 0 {
			if idx >= len(m.tabs) {
				idx = len(m.tabs) - 1
			}
			next = m.tabs[idx].ID
		}
	}
	view := m.view
	m.mu.Unlock()

	if view != nil {
		view.RemoveTab(id)
	}
	m.logger.Debug("tab closed: %s", closed.Title)
	m.emit("tab.closed", map[string]any{"id": id, "title": closed.Title, "path": closed.Path})

	if next != "" {
		if err := m.Activate(next); err != nil {
			m.logger.Debug("activate tab %s: %v", next, err)
		}
	}
	return nil
}

// Activate focuses a tab.
func (m *TabManager) Activate(id string) error {
	m.mu.Lock()
	found := false
	for _, t := range m.tabs {
		if t.ID == id {
			found = true
			break
		}
	}
	if !found {
		m.mu.Unlock()
		return fmt.Errorf("activate tab %q: %w", id, ErrTabNotFound)
	}
	old := m.active
	if old == id {
		m.mu.Unlock()
		return nil
	}
	m.active = id
	view := m.view
	m.mu.Unlock()

	if view != nil {
		view.SetActive(id)
	}
	m.emit("tab.activated", map[string]any{"old": old, "new": id})
	return nil
}

// SetModified flags or clears a tab's unsaved-changes marker.
func (m *TabManager) SetModified(id string, modified bool) error {
	m.mu.Lock()
	var tab Tab
	found := false
	for _, t := range m.tabs {
		if t.ID == id {
			t.Modified = modified
			tab = *t
			found = true
			break
		}
	}
	view := m.view
	m.mu.Unlock()

	if !found {
		return fmt.Errorf("modify tab %q: %w", id, ErrTabNotFound)
	}
	if view != nil {
		view.UpdateTab(tab)
	}
	m.emit("tab.updated", map[string]any{"id": id, "modified": modified})
	return nil
}

// Active returns the focused tab.
func (m *TabManager) Active() (Tab, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tabs {
		if t.ID == m.active {
			return *t, true
		}
	}
	return Tab{}, false
}

// Get returns a tab by id.
func (m *TabManager) Get(id string) (Tab, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tabs {
		if t.ID == id {
			return *t, true
		}
	}
	return Tab{}, false
}

// Tabs returns the tabs in strip order.
func (m *TabManager) Tabs() []Tab {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tab, len(m.tabs))
	for i, t := range m.tabs {
		out[i] = *t
	}
	return out
}

// Count returns the number of open tabs.
func (m *TabManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tabs)
}

// SetView attaches the tab-strip view, replaying open tabs and the active
// highlight.
func (m *TabManager) SetView(v TabView) {
	m.mu.Lock()
	m.view = v
	tabs := make([]Tab, len(m.tabs))
	for i, t := range m.tabs {
		tabs[i] = *t
	}
	active := m.active
	m.mu.Unlock()

	if v == nil {
		return
	}
	for _, t := range tabs {
		v.AddTab(t)
	}
	if active != "" {
		v.SetActive(active)
	}
}

func (m *TabManager) emit(topic string, data map[string]any) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Emit(event.Topic(topic), "workbench", data); err != nil {
		m.logger.Debug("emit %s: %v", topic, err)
	}
}
