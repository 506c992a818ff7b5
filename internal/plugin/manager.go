package plugin

import (
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/dshills/polyglot/internal/logging"
	"github.com/dshills/polyglot/internal/plugin/api"
)

// registerPattern is a cheap textual check for a register function. The
// authoritative check happens at load time after the entry script runs.
var registerPattern = regexp.MustCompile(`(?m)function\s+register\s*\(|register\s*=\s*function`)

// ManagerEventType identifies a plugin lifecycle event.
type ManagerEventType int

const (
	// EventPluginLoaded fires after a plugin registers successfully.
	EventPluginLoaded ManagerEventType = iota
	// EventPluginUnloaded fires after a plugin is torn down.
	EventPluginUnloaded
	// EventPluginError fires when a load attempt fails.
	EventPluginError
)

// String returns the event type name.
func (t ManagerEventType) String() string {
	switch t {
	case EventPluginLoaded:
		return "loaded"
	case EventPluginUnloaded:
		return "unloaded"
	case EventPluginError:
		return "error"
	default:
		return "unknown"
	}
}

// ManagerEvent describes a plugin lifecycle transition.
type ManagerEvent struct {
	Type   ManagerEventType
	Plugin string
	Error  error
}

// EventHandler receives plugin lifecycle events.
type EventHandler func(ManagerEvent)

// Manager owns the plugin lifecycle: discovery, dependency-ordered
// loading, unloading in reverse order and lifecycle notifications.
type Manager struct {
	mu        sync.Mutex
	loader    *Loader
	registry  *api.Registry
	hosts     map[string]*Host
	loadOrder []string

	obsMu     sync.RWMutex
	observers []EventHandler

	logger *logging.Logger
}

// NewManager creates a manager over a loader and an API registry.
func NewManager(loader *Loader, registry *api.Registry, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Null
	}
	return &Manager{
		loader:   loader,
		registry: registry,
		hosts:    make(map[string]*Host),
		logger:   logger.WithComponent("plugin.manager"),
	}
}

// Discover rescans the plugin paths. Plugins that are currently loaded
// keep their loaded state in the refreshed listing.
func (m *Manager) Discover() ([]*PluginInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discoverLocked()
}

func (m *Manager) discoverLocked() ([]*PluginInfo, error) {
	infos, err := m.loader.Discover()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if _, loaded := m.hosts[info.Name]; loaded {
			info.State = StateLoaded
		}
	}
	return infos, nil
}

// Validate checks that a discovered plugin's entry script appears to
// define a register function, without executing it.
func (m *Manager) Validate(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.loader.Get(name)
	if !ok {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}
	src, err := os.ReadFile(info.Manifest.MainPath())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("plugin %q: %w", name, ErrNoEntryPoint)
		}
		return fmt.Errorf("plugin %q: read entry: %w", name, err)
	}
	if !registerPattern.Match(src) {
		return fmt.Errorf("plugin %q: %w", name, ErrNoRegister)
	}
	return nil
}

// Load loads one plugin. Loading an already-loaded plugin succeeds
// without running its register function again. A failed load leaves the
// plugin unloaded with the error recorded, so it can be retried.
func (m *Manager) Load(name string) error {
	var events []ManagerEvent
	m.mu.Lock()
	err := m.loadLocked(name, &events)
	m.mu.Unlock()
	m.dispatch(events)
	return err
}

func (m *Manager) loadLocked(name string, events *[]ManagerEvent) error {
	if _, loaded := m.hosts[name]; loaded {
		return nil
	}

	info, ok := m.loader.Get(name)
	if !ok {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}

	if err := m.checkRequirements(info.Manifest); err != nil {
		return m.recordFailure(info, err, events)
	}
	if err := m.checkDependencies(info.Manifest); err != nil {
		return m.recordFailure(info, err, events)
	}

	host, err := NewHost(info.Manifest, m.registry.NewSet(name), m.logger)
	if err != nil {
		return m.recordFailure(info, err, events)
	}
	if err := host.Load(); err != nil {
		return m.recordFailure(info, err, events)
	}

	m.hosts[name] = host
	m.loadOrder = append(m.loadOrder, name)
	info.State = StateLoaded
	info.Error = nil
	m.logger.Info("loaded plugin %s", info.Manifest)
	*events = append(*events, ManagerEvent{Type: EventPluginLoaded, Plugin: name})
	return nil
}

// checkRequirements verifies the pg API modules the manifest requires
// are available in the registry.
func (m *Manager) checkRequirements(manifest *Manifest) error {
	for _, mod := range manifest.Requires {
		if !m.registry.Has(mod) {
			return fmt.Errorf("plugin %q requires api module %q: %w",
				manifest.Name, mod, ErrRequirementMissing)
		}
	}
	return nil
}

// checkDependencies verifies every declared plugin dependency is
// discovered and already loaded.
func (m *Manager) checkDependencies(manifest *Manifest) error {
	for _, dep := range manifest.Dependencies {
		if _, ok := m.loader.Get(dep); !ok {
			return fmt.Errorf("plugin %q dependency %q: %w",
				manifest.Name, dep, ErrDependencyNotFound)
		}
		if _, loaded := m.hosts[dep]; !loaded {
			return fmt.Errorf("plugin %q dependency %q: %w",
				manifest.Name, dep, ErrDependencyNotLoaded)
		}
	}
	return nil
}

func (m *Manager) recordFailure(info *PluginInfo, err error, events *[]ManagerEvent) error {
	info.State = StateUnloaded
	info.Error = err
	m.logger.Warn("load plugin %s: %v", info.Name, err)
	*events = append(*events, ManagerEvent{Type: EventPluginError, Plugin: info.Name, Error: err})
	return err
}

// LoadAll discovers and loads every plugin, deferring plugins whose
// dependencies are not loaded yet and sweeping until no progress is
// made. The result maps plugin name to load success.
func (m *Manager) LoadAll() map[string]bool {
	var events []ManagerEvent
	m.mu.Lock()
	results := m.loadAllLocked(&events)
	m.mu.Unlock()
	m.dispatch(events)
	return results
}

func (m *Manager) loadAllLocked(events *[]ManagerEvent) map[string]bool {
	infos, err := m.discoverLocked()
	if err != nil {
		m.logger.Warn("plugin discovery: %v", err)
		return map[string]bool{}
	}

	results := make(map[string]bool, len(infos))
	pending := make([]string, 0, len(infos))
	for _, info := range infos {
		pending = append(pending, info.Name)
	}

	for sweep := 0; sweep <= len(infos) && len(pending) > 0; sweep++ {
		progress := false
		deferred := pending[:0:0]
		for _, name := range pending {
			if !m.dependenciesReady(name) {
				deferred = append(deferred, name)
				continue
			}
			results[name] = m.loadLocked(name, events) == nil
			progress = true
		}
		pending = deferred
		if !progress {
			break
		}
	}

	// Anything still pending has an unsatisfiable dependency chain. Load
	// them anyway so the dependency error is recorded on their info.
	for _, name := range pending {
		results[name] = m.loadLocked(name, events) == nil
	}
	return results
}

// dependenciesReady reports whether every declared dependency of a
// discovered plugin is loaded.
func (m *Manager) dependenciesReady(name string) bool {
	info, ok := m.loader.Get(name)
	if !ok {
		return true
	}
	for _, dep := range info.Manifest.Dependencies {
		if _, loaded := m.hosts[dep]; !loaded {
			return false
		}
	}
	return true
}

// Unload tears one plugin down.
func (m *Manager) Unload(name string) error {
	var events []ManagerEvent
	m.mu.Lock()
	err := m.unloadLocked(name, &events)
	m.mu.Unlock()
	m.dispatch(events)
	return err
}

func (m *Manager) unloadLocked(name string, events *[]ManagerEvent) error {
	host, loaded := m.hosts[name]
	if !loaded {
		if _, discovered := m.loader.Get(name); discovered {
			return fmt.Errorf("plugin %q: %w", name, ErrNotLoaded)
		}
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}

	delete(m.hosts, name)
	m.removeFromLoadOrder(name)
	host.Unload()

	if info, ok := m.loader.Get(name); ok {
		info.State = StateUnloaded
		info.Error = nil
	}
	m.logger.Info("unloaded plugin %s", name)
	*events = append(*events, ManagerEvent{Type: EventPluginUnloaded, Plugin: name})
	return nil
}

// UnloadAll unloads every plugin in reverse load order.
func (m *Manager) UnloadAll() {
	var events []ManagerEvent
	m.mu.Lock()
	for i := len(m.loadOrder) - 1; i >= 0; i-- {
		_ = m.unloadLocked(m.loadOrder[i], &events)
	}
	m.mu.Unlock()
	m.dispatch(events)
}

// Reload unloads a plugin if loaded, rescans the plugin paths and loads
// it again, picking up changes to its files.
func (m *Manager) Reload(name string) error {
	var events []ManagerEvent
	m.mu.Lock()
	err := m.reloadLocked(name, &events)
	m.mu.Unlock()
	m.dispatch(events)
	return err
}

func (m *Manager) reloadLocked(name string, events *[]ManagerEvent) error {
	if _, loaded := m.hosts[name]; loaded {
		if err := m.unloadLocked(name, events); err != nil {
			return err
		}
	}
	if _, err := m.discoverLocked(); err != nil {
		return err
	}
	return m.loadLocked(name, events)
}

// Get returns the running host for a loaded plugin.
func (m *Manager) Get(name string) (*Host, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	host, ok := m.hosts[name]
	return host, ok
}

// Plugins returns the discovery records sorted by name.
func (m *Manager) Plugins() []*PluginInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loader.List()
}

// Count returns the number of loaded plugins.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hosts)
}

// LoadOrder returns the names of loaded plugins in load order.
func (m *Manager) LoadOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := make([]string, len(m.loadOrder))
	copy(order, m.loadOrder)
	return order
}

// Subscribe registers a lifecycle event handler and returns an
// unsubscribe function.
func (m *Manager) Subscribe(handler EventHandler) func() {
	m.obsMu.Lock()
	m.observers = append(m.observers, handler)
	idx := len(m.observers) - 1
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		defer m.obsMu.Unlock()
		if idx < len(m.observers) {
			m.observers[idx] = nil
		}
	}
}

// dispatch delivers lifecycle events outside the manager lock, so
// handlers may call back into the manager. Panics are contained.
func (m *Manager) dispatch(events []ManagerEvent) {
	if len(events) == 0 {
		return
	}
	m.obsMu.RLock()
	handlers := make([]EventHandler, len(m.observers))
	copy(handlers, m.observers)
	m.obsMu.RUnlock()

	for _, ev := range events {
		for _, handler := range handlers {
			if handler == nil {
				continue
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						m.logger.Error("plugin event handler panic: %v", r)
					}
				}()
				handler(ev)
			}()
		}
	}
}

func (m *Manager) removeFromLoadOrder(name string) {
	for i, n := range m.loadOrder {
		if n == name {
			m.loadOrder = append(m.loadOrder[:i], m.loadOrder[i+1:]...)
			return
		}
	}
}
