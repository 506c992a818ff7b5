package workbench

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/dshills/polyglot/internal/config"
	"github.com/dshills/polyglot/internal/event"
	"github.com/dshills/polyglot/internal/logging"
)

// Activity-bar areas.
const (
	AreaMain   = "main"
	AreaBottom = "bottom"
)

// ActivityConfig describes one activity-bar entry. The descriptor is not
// mutated after registration except for BadgeCount, which SetBadge updates
// on the manager's copy, and Position/Enabled through RestoreState and
// SetEnabled.
type ActivityConfig struct {
	ID         string
	Icon       string
	Tooltip    string
	Shortcut   string
	Position   int
	Area       string // AreaMain or AreaBottom; empty means AreaMain
	BadgeCount int
	Enabled    bool
}

// ActivityState is the persistable session state of the activity bar and
// sidebar.
type ActivityState struct {
	ActiveActivity    string
	PanelWidth        int
	PanelVisible      bool
	ActivityPositions map[string]int
}

// ActivityView is the activity-bar rendering collaborator.
type ActivityView interface {
	AddButton(cfg ActivityConfig)
	RemoveButton(id string)
	SetActive(id string)
	SetBadge(id string, count int)
}

// activityEntry pairs a registered activity with its panel factory and the
// panel once constructed.
type activityEntry struct {
	cfg     ActivityConfig
	factory PanelFactory
	panel   Panel
}

// ActivityManager maps activity ids to panels and enforces that at most one
// activity is active. Every state change runs through transition, so
// observers see exactly one (old, new) notification per change and panels
// are always hidden before their successor is shown.
type ActivityManager struct {
	mu         sync.RWMutex
	activities map[string]*activityEntry
	current    string
	observers  []func(old, new string)
	view       ActivityView

	sidebar *SidebarManager
	bus     *event.Bus
	logger  *logging.Logger
}

// NewActivityManager creates an activity manager that displays panels
// through sidebar. The bus is optional.
func NewActivityManager(sidebar *SidebarManager, bus *event.Bus, logger *logging.Logger) *ActivityManager {
	if logger == nil {
		logger = logging.Null
	}
	return &ActivityManager{
		activities: make(map[string]*activityEntry),
		sidebar:    sidebar,
		bus:        bus,
		logger:     logger.WithComponent("activity"),
	}
}

// Register adds an activity to the bar. The factory constructs the
// activity's panel on first activation; it may be nil, in which case
// activation fails with ErrNoPanelFactory until a panel is available.
func (m *ActivityManager) Register(cfg ActivityConfig, factory PanelFactory) error {
	if cfg.ID == "" {
		return ErrEmptyActivityID
	}
	if cfg.Area == "" {
		cfg.Area = AreaMain
	}

	m.mu.Lock()
	if _, exists := m.activities[cfg.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("register activity %q: %w", cfg.ID, ErrActivityExists)
	}
	m.activities[cfg.ID] = &activityEntry{cfg: cfg, factory: factory}
	view := m.view
	m.mu.Unlock()

	if view != nil {
		view.AddButton(cfg)
	}
	m.logger.Debug("activity registered: %s", cfg.ID)
	if m.bus != nil {
		if err := m.bus.Emit("activity.registered", "workbench", map[string]any{"id": cfg.ID}); err != nil {
			m.logger.Debug("emit activity.registered: %v", err)
		}
	}
	return nil
}

// Unregister removes an activity, deactivating it first when active.
func (m *ActivityManager) Unregister(id string) error {
	if id == "" {
		return ErrEmptyActivityID
	}
	m.mu.RLock()
	_, ok := m.activities[id]
	active := m.current == id
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unregister activity %q: %w", id, ErrActivityNotFound)
	}

	if active {
		if err := m.Deactivate(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	delete(m.activities, id)
	view := m.view
	m.mu.Unlock()

	if view != nil {
		view.RemoveButton(id)
	}
	m.logger.Debug("activity unregistered: %s", id)
	return nil
}

// Toggle activates id, or deactivates it when it is already active.
func (m *ActivityManager) Toggle(id string) error {
	if id == "" {
		return ErrEmptyActivityID
	}
	m.mu.RLock()
	_, ok := m.activities[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("toggle activity %q: %w", id, ErrActivityNotFound)
	}
	return m.transition(id)
}

// Deactivate hides the active panel and clears the active activity. It is a
// no-op when nothing is active.
func (m *ActivityManager) Deactivate() error {
	return m.transition("")
}

// transition is the single state-change path for the activity bar. A target
// equal to the current activity deactivates it; otherwise the target panel
// is resolved before the current panel is hidden, so a factory failure
// leaves the workbench unchanged.
func (m *ActivityManager) transition(target string) error {
	m.mu.Lock()
	if target == m.current {
		target = ""
	}
	if target == "" && m.current == "" {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	var panel Panel
	if target != "" {
		p, err := m.resolvePanel(target)
		if err != nil {
			m.logger.Warn("activate %s: %v", target, err)
			return err
		}
		panel = p
	}

	m.mu.Lock()
	old := m.current
	if target == old {
		m.mu.Unlock()
		return nil
	}
	m.current = target
	observers := make([]func(string, string), len(m.observers))
	copy(observers, m.observers)
	view := m.view
	m.mu.Unlock()

	if m.sidebar != nil {
		if target == "" {
			m.sidebar.Clear()
		} else {
			m.sidebar.Display(panel)
		}
	}
	if view != nil {
		view.SetActive(target)
	}

	m.logger.Debug("activity %q -> %q", old, target)
	for _, fn := range observers {
		if fn != nil {
			fn(old, target)
		}
	}
	if m.bus != nil {
		if err := m.bus.Emit("activity.changed", "workbench", map[string]any{"old": old, "new": target}); err != nil {
			m.logger.Debug("emit activity.changed: %v", err)
		}
	}
	return nil
}

// resolvePanel returns the activity's panel, constructing it through the
// registered factory on first activation. The factory runs without the
// manager lock held so it may call back into the manager.
func (m *ActivityManager) resolvePanel(id string) (Panel, error) {
	m.mu.Lock()
	e, ok := m.activities[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("activity %q: %w", id, ErrActivityNotFound)
	}
	if !e.cfg.Enabled {
		m.mu.Unlock()
		return nil, fmt.Errorf("activity %q: %w", id, ErrActivityDisabled)
	}
	if e.panel != nil {
		p := e.panel
		m.mu.Unlock()
		return p, nil
	}
	factory := e.factory
	m.mu.Unlock()

	if factory == nil {
		return nil, fmt.Errorf("activity %q: %w", id, ErrNoPanelFactory)
	}
	p, err := factory()
	if err != nil {
		return nil, fmt.Errorf("activity %q panel: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("activity %q panel: %w", id, ErrNilPanel)
	}

	m.mu.Lock()
	if e, ok := m.activities[id]; ok && e.panel == nil {
		e.panel = p
	}
	m.mu.Unlock()
	return p, nil
}

// Current returns the active activity id, or "" when none is active.
func (m *ActivityManager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Get returns a registered activity's descriptor.
func (m *ActivityManager) Get(id string) (ActivityConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.activities[id]
	if !ok {
		return ActivityConfig{}, false
	}
	return e.cfg, true
}

// Activities returns the registered activities ordered by area, position,
// then id.
func (m *ActivityManager) Activities() []ActivityConfig {
	m.mu.RLock()
	out := make([]ActivityConfig, 0, len(m.activities))
	for _, e := range m.activities {
		out = append(out, e.cfg)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Area != out[j].Area {
			return out[i].Area == AreaMain
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of registered activities.
func (m *ActivityManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.activities)
}

// Subscribe registers an observer for activity transitions. The returned
// function removes the observer.
func (m *ActivityManager) Subscribe(fn func(old, new string)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observers = append(m.observers, fn)
	idx := len(m.observers) - 1

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < len(m.observers) {
			m.observers[idx] = nil
		}
	}
}

// SetBadge updates the badge count shown on an activity's button.
func (m *ActivityManager) SetBadge(id string, count int) error {
	m.mu.Lock()
	e, ok := m.activities[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("badge for activity %q: %w", id, ErrActivityNotFound)
	}
	e.cfg.BadgeCount = count
	view := m.view
	m.mu.Unlock()

	if view != nil {
		view.SetBadge(id, count)
	}
	return nil
}

// SetEnabled enables or disables an activity. Disabling the active activity
// deactivates it first.
func (m *ActivityManager) SetEnabled(id string, enabled bool) error {
	m.mu.Lock()
	e, ok := m.activities[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("enable activity %q: %w", id, ErrActivityNotFound)
	}
	wasActive := !enabled && m.current == id
	e.cfg.Enabled = enabled
	m.mu.Unlock()

	if wasActive {
		return m.Deactivate()
	}
	return nil
}

// SetView attaches the activity-bar view. Registered activities and the
// active highlight are replayed so late attachment renders the live state.
func (m *ActivityManager) SetView(v ActivityView) {
	m.mu.Lock()
	m.view = v
	current := m.current
	m.mu.Unlock()

	if v == nil {
		return
	}
	for _, cfg := range m.Activities() {
		v.AddButton(cfg)
		if cfg.BadgeCount > 0 {
			v.SetBadge(cfg.ID, cfg.BadgeCount)
		}
	}
	v.SetActive(current)
}

// State snapshots the activity bar and sidebar for persistence.
func (m *ActivityManager) State() ActivityState {
	m.mu.RLock()
	st := ActivityState{
		ActiveActivity:    m.current,
		ActivityPositions: make(map[string]int, len(m.activities)),
	}
	for id, e := range m.activities {
		st.ActivityPositions[id] = e.cfg.Position
	}
	m.mu.RUnlock()

	if m.sidebar != nil {
		st.PanelWidth = m.sidebar.Width()
		st.PanelVisible = m.sidebar.Visible()
	}
	return st
}

// RestoreState applies a snapshot. Positions and sidebar geometry are
// applied unconditionally; the recorded activity is reactivated only if it
// is still registered, and an unknown id is logged rather than failing the
// restore.
func (m *ActivityManager) RestoreState(st ActivityState) error {
	m.mu.Lock()
	for id, pos := range st.ActivityPositions {
		if e, ok := m.activities[id]; ok {
			e.cfg.Position = pos
		}
	}
	m.mu.Unlock()

	if m.sidebar != nil {
		if st.PanelWidth > 0 {
			m.sidebar.SetWidth(st.PanelWidth)
		}
		m.sidebar.SetVisible(st.PanelVisible)
	}

	if st.ActiveActivity == "" {
		return m.Deactivate()
	}
	m.mu.RLock()
	_, ok := m.activities[st.ActiveActivity]
	current := m.current
	m.mu.RUnlock()
	if !ok {
		m.logger.Warn("restore: activity %q not registered", st.ActiveActivity)
		return nil
	}
	if current == st.ActiveActivity {
		return nil
	}
	return m.transition(st.ActiveActivity)
}

// Session-store paths for workbench state.
const (
	stateActiveActivity = "workbench.active_activity"
	statePanelWidth     = "workbench.panel_width"
	statePanelVisible   = "workbench.panel_visible"
	statePositions      = "workbench.activity_positions"
)

// SaveState writes the current ActivityState to the session store.
func (m *ActivityManager) SaveState(store *config.StateStore) error {
	if store == nil {
		return nil
	}
	st := m.State()
	if err := store.Set(stateActiveActivity, st.ActiveActivity); err != nil {
		return err
	}
	if err := store.Set(statePanelWidth, st.PanelWidth); err != nil {
		return err
	}
	if err := store.Set(statePanelVisible, st.PanelVisible); err != nil {
		return err
	}
	return store.Set(statePositions, st.ActivityPositions)
}

// LoadState reads an ActivityState from the session store and applies it.
// Keys absent from the store leave the current values in place.
func (m *ActivityManager) LoadState(store *config.StateStore) error {
	if store == nil {
		return nil
	}
	st := ActivityState{
		ActiveActivity: store.GetString(stateActiveActivity, ""),
		PanelWidth:     int(store.GetInt(statePanelWidth, 0)),
		PanelVisible:   store.GetBool(statePanelVisible, false),
	}
	if res := store.Get(statePositions); res.IsObject() {
		st.ActivityPositions = make(map[string]int)
		res.ForEach(func(key, value gjson.Result) bool {
			st.ActivityPositions[key.String()] = int(value.Int())
			return true
		})
	}
	return m.RestoreState(st)
}
