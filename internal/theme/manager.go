package theme

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/polyglot/internal/event"
	"github.com/dshills/polyglot/internal/logging"
)

// Manager holds the registered themes and the current selection. Theme
// changes notify the explicit observer list first, then emit "theme.changed"
// on the event bus for plugins.
type Manager struct {
	mu        sync.RWMutex
	themes    map[string]*Theme
	current   *Theme
	observers []func(*Theme)

	bus    *event.Bus
	logger *logging.Logger
}

// NewManager creates a manager with the built-in themes registered and
// polyglot-dark current. The bus is optional.
func NewManager(bus *event.Bus, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Null
	}
	m := &Manager{
		themes: make(map[string]*Theme),
		bus:    bus,
		logger: logger.WithComponent("theme"),
	}
	for _, t := range []*Theme{PolyglotDark(), PolyglotLight(), HighContrast()} {
		m.themes[t.Name] = t
	}
	m.current = m.themes[DefaultThemeName]
	return m
}

// Register adds a theme. Registering a name again replaces the old theme;
// if it is current, observers are re-notified with the replacement.
func (m *Manager) Register(t *Theme) error {
	if t == nil {
		return ErrNilTheme
	}
	if err := validateTheme(t); err != nil {
		return fmt.Errorf("register theme %q: %w", t.Name, err)
	}

	m.mu.Lock()
	m.themes[t.Name] = t
	reapply := m.current != nil && m.current.Name == t.Name
	m.mu.Unlock()

	if reapply {
		return m.Apply(t.Name)
	}
	return nil
}

// Apply makes the named theme current and notifies observers exactly once.
func (m *Manager) Apply(name string) error {
	m.mu.Lock()
	t, ok := m.themes[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("apply theme %q: %w", name, ErrThemeNotFound)
	}
	m.current = t
	observers := make([]func(*Theme), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	m.logger.Info("theme applied: %s", name)
	for _, fn := range observers {
		if fn != nil {
			fn(t)
		}
	}

	if m.bus != nil {
		if err := m.bus.Emit("theme.changed", "theme", map[string]any{"name": name}); err != nil {
			m.logger.Debug("emit theme.changed: %v", err)
		}
	}
	return nil
}

// Current returns the current theme.
func (m *Manager) Current() *Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Get returns a registered theme by name.
func (m *Manager) Get(name string) (*Theme, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.themes[name]
	return t, ok
}

// Names returns all registered theme names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.themes))
	for name := range m.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subscribe registers a theme observer and returns its unsubscribe function.
func (m *Manager) Subscribe(fn func(*Theme)) func() {
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

// Import decodes, validates, and registers a theme document.
func (m *Manager) Import(data []byte) (*Theme, error) {
	t, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := m.Register(t); err != nil {
		return nil, err
	}
	m.logger.Info("theme imported: %s", t.Name)
	return t, nil
}

// ImportFile imports a theme JSON file.
func (m *Manager) ImportFile(path string) (*Theme, error) {
	t, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	if err := m.Register(t); err != nil {
		return nil, err
	}
	m.logger.Info("theme imported: %s (%s)", t.Name, path)
	return t, nil
}

// Export marshals a registered theme to JSON.
func (m *Manager) Export(name string) ([]byte, error) {
	t, ok := m.Get(name)
	if !ok {
		return nil, fmt.Errorf("export theme %q: %w", name, ErrThemeNotFound)
	}
	return Encode(t)
}

// ExportFile writes a registered theme to a JSON file.
func (m *Manager) ExportFile(name, path string) error {
	t, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("export theme %q: %w", name, ErrThemeNotFound)
	}
	return EncodeFile(t, path)
}

// validateTheme applies the import schema rules to an in-memory theme.
func validateTheme(t *Theme) error {
	if t.Name == "" {
		return ErrMissingName
	}
	if t.Version == "" {
		return ErrMissingVersion
	}
	if len(t.Colors) == 0 {
		return ErrMissingColors
	}
	if t.Styles == nil {
		return ErrMissingStyles
	}
	for _, key := range []string{"background", "foreground"} {
		if _, ok := t.Colors[key]; !ok {
			return fmt.Errorf("colors.%s: %w", key, ErrMissingColorKey)
		}
	}
	for key, val := range t.Colors {
		if _, err := ParseHex(val); err != nil {
			return fmt.Errorf("colors.%s: %w", key, err)
		}
	}
	return nil
}
