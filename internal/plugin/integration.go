package plugin

import (
	"sync"

	"github.com/dshills/polyglot/internal/logging"
	"github.com/dshills/polyglot/internal/plugin/api"
)

// SystemConfig carries everything the plugin system needs from the host
// application. Providers may be nil; the corresponding pg modules then
// degrade or refuse registration as documented on each module.
type SystemConfig struct {
	// Paths are the plugin search paths. Empty means the defaults.
	Paths []string

	Workbench api.WorkbenchProvider
	Tabs      api.TabsProvider
	Commands  api.CommandProvider
	Events    api.EventProvider
	Services  api.ServiceProvider
	Config    api.ConfigProvider
	UI        api.UIProvider

	Logger *logging.Logger
}

// System bundles the loader, the API registry and the manager behind a
// single facade for the application.
type System struct {
	mu          sync.RWMutex
	cfg         SystemConfig
	loader      *Loader
	registry    *api.Registry
	manager     *Manager
	logger      *logging.Logger
	initialized bool
}

// NewSystem creates an uninitialized plugin system.
func NewSystem(cfg SystemConfig) *System {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Null
	}
	return &System{
		cfg:    cfg,
		logger: logger.WithComponent("plugin"),
	}
}

// Initialize builds the API registry, loader and manager.
func (s *System) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}

	ctx := &api.Context{
		Workbench: s.cfg.Workbench,
		Tabs:      s.cfg.Tabs,
		Commands:  s.cfg.Commands,
		Events:    s.cfg.Events,
		Services:  s.cfg.Services,
		Config:    s.cfg.Config,
		UI:        s.cfg.UI,
		Logger:    s.cfg.Logger,
	}
	s.registry = api.NewRegistry(ctx, s.cfg.Logger)
	s.loader = NewLoader(s.cfg.Paths, s.cfg.Logger)
	s.manager = NewManager(s.loader, s.registry, s.cfg.Logger)
	s.initialized = true

	s.logger.Info("plugin system initialized, paths: %v", s.loader.Paths())
	return nil
}

// Shutdown unloads every plugin and marks the system uninitialized.
func (s *System) Shutdown() error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	manager := s.manager
	s.initialized = false
	s.mu.Unlock()

	manager.UnloadAll()
	s.logger.Info("plugin system shut down")
	return nil
}

// ready returns the manager if the system is initialized.
func (s *System) ready() (*Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return s.manager, nil
}

// Discover rescans the plugin paths.
func (s *System) Discover() ([]*PluginInfo, error) {
	m, err := s.ready()
	if err != nil {
		return nil, err
	}
	return m.Discover()
}

// Load loads one plugin by name.
func (s *System) Load(name string) error {
	m, err := s.ready()
	if err != nil {
		return err
	}
	return m.Load(name)
}

// LoadAll discovers and loads every plugin in dependency order.
func (s *System) LoadAll() (map[string]bool, error) {
	m, err := s.ready()
	if err != nil {
		return nil, err
	}
	return m.LoadAll(), nil
}

// Unload unloads one plugin by name.
func (s *System) Unload(name string) error {
	m, err := s.ready()
	if err != nil {
		return err
	}
	return m.Unload(name)
}

// Reload unloads, rediscovers and loads a plugin, picking up file
// changes.
func (s *System) Reload(name string) error {
	m, err := s.ready()
	if err != nil {
		return err
	}
	return m.Reload(name)
}

// Validate statically checks a discovered plugin's entry script.
func (s *System) Validate(name string) error {
	m, err := s.ready()
	if err != nil {
		return err
	}
	return m.Validate(name)
}

// Get returns the running host for a loaded plugin.
func (s *System) Get(name string) (*Host, bool) {
	m, err := s.ready()
	if err != nil {
		return nil, false
	}
	return m.Get(name)
}

// Plugins returns the discovery records sorted by name.
func (s *System) Plugins() []*PluginInfo {
	m, err := s.ready()
	if err != nil {
		return nil
	}
	return m.Plugins()
}

// Count returns the number of loaded plugins.
func (s *System) Count() int {
	m, err := s.ready()
	if err != nil {
		return 0
	}
	return m.Count()
}

// Subscribe registers a lifecycle event handler. The returned function
// unsubscribes it. Subscribing before Initialize is an error, reported
// by returning a no-op unsubscribe.
func (s *System) Subscribe(handler EventHandler) func() {
	m, err := s.ready()
	if err != nil {
		s.logger.Warn("subscribe before initialize")
		return func() {}
	}
	return m.Subscribe(handler)
}

// Registry exposes the API module registry, letting the application add
// its own pg modules before plugins load.
func (s *System) Registry() *api.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

// Manager exposes the plugin manager.
func (s *System) Manager() *Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manager
}
