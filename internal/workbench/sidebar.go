package workbench

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/polyglot/internal/logging"
)

// Sidebar width bounds in cells.
const (
	MinPanelWidth     = 20
	MaxPanelWidth     = 120
	DefaultPanelWidth = 32
)

// SidebarView is the rendering collaborator for the sidebar region.
type SidebarView interface {
	ShowPanel(p Panel)
	Clear()
	SetWidth(width int)
	SetVisible(visible bool)
}

// SidebarManager tracks the registered sidebar panels and which one is
// displayed. Panels arrive from built-in activities and from plugins; at
// most one is visible at a time.
type SidebarManager struct {
	mu      sync.RWMutex
	panels  map[string]Panel
	active  Panel
	width   int
	visible bool
	view    SidebarView

	logger *logging.Logger
}

// NewSidebarManager creates an empty sidebar with the default width.
func NewSidebarManager(logger *logging.Logger) *SidebarManager {
	if logger == nil {
		logger = logging.Null
	}
	return &SidebarManager{
		panels: make(map[string]Panel),
		width:  DefaultPanelWidth,
		logger: logger.WithComponent("sidebar"),
	}
}

// AddPanel registers a panel so ShowPanel can display it by id.
func (s *SidebarManager) AddPanel(p Panel) error {
	if p == nil {
		return ErrNilPanel
	}
	if p.ID() == "" {
		return ErrEmptyPanelID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.panels[p.ID()]; exists {
		return fmt.Errorf("add panel %q: %w", p.ID(), ErrPanelExists)
	}
	s.panels[p.ID()] = p
	s.logger.Debug("panel added: %s", p.ID())
	return nil
}

// RemovePanel unregisters a panel, clearing the sidebar first when the
// panel is currently displayed.
func (s *SidebarManager) RemovePanel(id string) error {
	s.mu.Lock()
	if _, ok := s.panels[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("remove panel %q: %w", id, ErrPanelNotFound)
	}
	displayed := s.active != nil && s.active.ID() == id
	delete(s.panels, id)
	s.mu.Unlock()

	if displayed {
		s.Clear()
	}
	s.logger.Debug("panel removed: %s", id)
	return nil
}

// ShowPanel displays a registered panel by id.
func (s *SidebarManager) ShowPanel(id string) error {
	s.mu.RLock()
	p, ok := s.panels[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("show panel %q: %w", id, ErrPanelNotFound)
	}
	s.Display(p)
	return nil
}

// Display makes p the visible sidebar panel, hiding the previous one first.
// The panel does not have to be registered; activity panels are displayed
// directly.
func (s *SidebarManager) Display(p Panel) {
	if p == nil {
		return
	}
	s.mu.Lock()
	prev := s.active
	s.active = p
	s.visible = true
	view := s.view
	s.mu.Unlock()

	if prev != nil && prev != p {
		prev.Hide()
	}
	p.Show()

	if view != nil {
		view.ShowPanel(p)
		view.SetVisible(true)
	}
}

// Clear hides the displayed panel and empties the sidebar.
func (s *SidebarManager) Clear() {
	s.mu.Lock()
	prev := s.active
	s.active = nil
	s.visible = false
	view := s.view
	s.mu.Unlock()

	if prev != nil {
		prev.Hide()
	}
	if view != nil {
		view.Clear()
		view.SetVisible(false)
	}
}

// ActivePanel returns the displayed panel, or nil.
func (s *SidebarManager) ActivePanel() Panel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Panel returns a registered panel by id.
func (s *SidebarManager) Panel(id string) (Panel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.panels[id]
	return p, ok
}

// HasPanel reports whether a panel id is registered.
func (s *SidebarManager) HasPanel(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.panels[id]
	return ok
}

// Panels returns the registered panels sorted by id.
func (s *SidebarManager) Panels() []Panel {
	s.mu.RLock()
	out := make([]Panel, 0, len(s.panels))
	for _, p := range s.panels {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Width returns the sidebar width in cells.
func (s *SidebarManager) Width() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width
}

// SetWidth sets the sidebar width, clamped to [MinPanelWidth, MaxPanelWidth].
func (s *SidebarManager) SetWidth(w int) {
	if w < MinPanelWidth {
		w = MinPanelWidth
	}
	if w > MaxPanelWidth {
		w = MaxPanelWidth
	}
	s.mu.Lock()
	s.width = w
	view := s.view
	s.mu.Unlock()

	if view != nil {
		view.SetWidth(w)
	}
}

// Visible reports whether the sidebar region is shown.
func (s *SidebarManager) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

// SetVisible shows or hides the sidebar region without changing which
// panel is displayed.
func (s *SidebarManager) SetVisible(v bool) {
	s.mu.Lock()
	s.visible = v
	active := s.active
	view := s.view
	s.mu.Unlock()

	if active != nil {
		if v {
			active.Show()
		} else {
			active.Hide()
		}
	}
	if view != nil {
		view.SetVisible(v)
	}
}

// SetView attaches the sidebar view. The displayed panel and geometry are
// replayed so late attachment renders the live state.
func (s *SidebarManager) SetView(v SidebarView) {
	s.mu.Lock()
	s.view = v
	active := s.active
	width := s.width
	visible := s.visible
	s.mu.Unlock()

	if v == nil {
		return
	}
	v.SetWidth(width)
	v.SetVisible(visible)
	if active != nil {
		v.ShowPanel(active)
	}
}
