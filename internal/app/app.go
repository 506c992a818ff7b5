// Package app wires the Polyglot workbench together and runs its main
// event loop. It owns component construction order, session persistence,
// and the routing of terminal input to commands.
package app

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dshills/polyglot/internal/command"
	"github.com/dshills/polyglot/internal/config"
	"github.com/dshills/polyglot/internal/event"
	"github.com/dshills/polyglot/internal/explorer"
	"github.com/dshills/polyglot/internal/logging"
	"github.com/dshills/polyglot/internal/mt"
	"github.com/dshills/polyglot/internal/plugin"
	"github.com/dshills/polyglot/internal/search"
	"github.com/dshills/polyglot/internal/service"
	"github.com/dshills/polyglot/internal/shell"
	"github.com/dshills/polyglot/internal/theme"
	"github.com/dshills/polyglot/internal/workbench"
)

// Options configures the application.
type Options struct {
	// ConfigDir overrides the user configuration directory.
	ConfigDir string

	// WorkspacePath is the directory the explorer and search are rooted
	// at. Empty means the current directory.
	WorkspacePath string

	// Files are files to open as tabs on startup.
	Files []string

	// ThemeName overrides the configured color theme.
	ThemeName string

	// LogLevel overrides the configured logging verbosity.
	LogLevel string

	// PluginPaths overrides the plugin search roots.
	PluginPaths []string

	// NoPlugins disables the plugin system regardless of configuration.
	NoPlugins bool
}

// Application is the central coordinator for all Polyglot components. It
// builds them in dependency order, runs the event loop, and tears them down
// in reverse.
type Application struct {
	opts Options

	cfg     *config.Config
	logger  *logging.Logger
	logFile *os.File
	bus     *event.Bus

	themes     *theme.Manager
	typography *theme.TypographyManager
	state      *config.StateStore

	sidebar    *workbench.SidebarManager
	activities *workbench.ActivityManager
	tabs       *workbench.TabManager

	commands *command.Registry
	services *service.Registry

	fileOps     *explorer.FileOps
	watcher     *explorer.Watcher
	searcher    *search.Engine
	translators *mt.Registry

	plugins *plugin.System

	explorerPanel    *explorerPanel
	searchPanel      *searchPanel
	extensionsPanel  *extensionsPanel
	preferencesPanel *preferencesPanel

	backend shell.Backend
	view    *shell.View

	running  atomic.Bool
	done     chan struct{}
	quitOnce sync.Once
	tasks    chan func()
}

// New creates an Application and bootstraps every component. The returned
// application is ready for SetBackend and Run.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts:  opts,
		done:  make(chan struct{}),
		tasks: make(chan func(), 64),
	}
	if err := app.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order. Optional
// components (plugins, the file watcher, translation providers) degrade to
// a warning; core components fail the whole startup.
func (app *Application) bootstrap() error {
	// Config first: everything else reads it.
	var cfgOpts []config.Option
	if app.opts.ConfigDir != "" {
		cfgOpts = append(cfgOpts, config.WithUserConfigDir(app.opts.ConfigDir))
	}
	app.cfg = config.New(cfgOpts...)
	loadErr := app.cfg.Load()

	logCfg := app.cfg.Logging()
	level := logCfg.Level
	if app.opts.LogLevel != "" {
		level = app.opts.LogLevel
	}
	app.logger = logging.New(logging.Config{
		Level:  logging.ParseLevel(level),
		Output: app.openLog(logCfg.File),
		Prefix: "polyglot",
	})
	if loadErr != nil {
		app.logger.Warn("config load: %v", loadErr)
	}

	app.bus = event.NewBus(event.WithLogger(app.logger))

	if err := app.setupThemes(); err != nil {
		return &InitError{Component: "themes", Err: err}
	}
	app.setupTypography()

	app.state = config.NewStateStore(
		filepath.Join(app.cfg.UserConfigDir(), "state.json"),
		config.WithStateLogger(app.logger),
	)
	if err := app.state.Load(); err != nil {
		app.logger.Warn("state load: %v", err)
	}

	wb := app.cfg.Workbench()
	app.sidebar = workbench.NewSidebarManager(app.logger)
	if wb.PanelWidth > 0 {
		app.sidebar.SetWidth(wb.PanelWidth)
	}
	app.sidebar.SetVisible(wb.SidebarVisible)
	app.activities = workbench.NewActivityManager(app.sidebar, app.bus, app.logger)
	app.tabs = workbench.NewTabManager(app.bus, app.logger)

	app.commands = command.NewRegistry()
	app.services = service.NewRegistry()

	app.fileOps = explorer.NewFileOps(
		filepath.Join(app.cfg.UserConfigDir(), "trash"), app.logger)
	app.searcher = search.NewEngine(app.logger)
	app.setupTranslators()
	if err := app.services.Register("mt", app.translators, "core"); err != nil {
		app.logger.Warn("mt service: %v", err)
	}
	app.setupPanels()
	app.setupWatcher()

	if err := app.setupPlugins(); err != nil {
		app.logger.Warn("plugin system: %v", err)
	}

	if err := app.registerActivities(); err != nil {
		return &InitError{Component: "activities", Err: err}
	}
	if err := app.registerCommands(); err != nil {
		return &InitError{Component: "commands", Err: err}
	}

	for _, file := range app.opts.Files {
		app.tabs.Open(filepath.Base(file), file)
	}

	app.logger.Info("polyglot ready, workspace %s", app.workspaceRoot())
	return nil
}

// openLog resolves the log destination. An empty path logs under the user
// config directory; the terminal owns stdout and stderr while running.
func (app *Application) openLog(path string) io.Writer {
	if path == "" {
		path = filepath.Join(app.cfg.UserConfigDir(), "polyglot.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return io.Discard
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return io.Discard
	}
	app.logFile = f
	return f
}

func (app *Application) setupThemes() error {
	app.themes = theme.NewManager(app.bus, app.logger)
	for _, t := range []*theme.Theme{
		theme.PolyglotDark(), theme.PolyglotLight(), theme.HighContrast(),
	} {
		if err := app.themes.Register(t); err != nil {
			return err
		}
	}

	// User themes live beside the config file and shadow nothing: a name
	// collision with a builtin is rejected at registration.
	themeDir := filepath.Join(app.cfg.UserConfigDir(), "themes")
	entries, err := os.ReadDir(themeDir)
	if err != nil && !os.IsNotExist(err) {
		app.logger.Warn("theme dir %s: %v", themeDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(themeDir, entry.Name())
		if _, err := app.themes.ImportFile(path); err != nil {
			app.logger.Warn("theme %s: %v", path, err)
		}
	}

	name := app.cfg.Theme().Name
	if app.opts.ThemeName != "" {
		name = app.opts.ThemeName
	}
	if name == "" {
		name = theme.DefaultThemeName
	}
	if err := app.themes.Apply(name); err != nil {
		app.logger.Warn("theme %q: %v, using default", name, err)
		return app.themes.Apply(theme.DefaultThemeName)
	}
	return nil
}

func (app *Application) setupTypography() {
	app.typography = theme.NewTypographyManager(app.bus, app.logger)
	tc := app.cfg.Typography()
	if tc.BaseFontFamily != "" {
		app.typography.SetBaseFamily(tc.BaseFontFamily)
	}
	if tc.BaseFontSize > 0 {
		if err := app.typography.SetBaseSize(float64(tc.BaseFontSize)); err != nil {
			app.logger.Warn("font size %d: %v", tc.BaseFontSize, err)
		}
	}
	if tc.ScaleFactor > 0 {
		app.typography.SetScaleFactor(tc.ScaleFactor)
	}
}

func (app *Application) setupTranslators() {
	app.translators = mt.NewRegistry()
	mtCfg := app.cfg.MT()

	// The configured model override applies to the configured provider
	// only; the others keep their own defaults.
	modelFor := func(name string) string {
		if mtCfg.Provider == name {
			return mtCfg.Model
		}
		return ""
	}
	if mtCfg.AnthropicAPIKey != "" {
		app.translators.Register(mt.NewAnthropicProvider(
			mtCfg.AnthropicAPIKey, modelFor("anthropic"), mtCfg.MaxTokens))
	}
	if mtCfg.OpenAIAPIKey != "" {
		app.translators.Register(mt.NewOpenAIProvider(
			mtCfg.OpenAIAPIKey, modelFor("openai"), mtCfg.MaxTokens))
	}
	if mtCfg.GeminiAPIKey != "" {
		app.translators.Register(mt.NewGeminiProvider(
			mtCfg.GeminiAPIKey, modelFor("gemini"), mtCfg.MaxTokens))
	}
	if mtCfg.Provider != "" {
		if err := app.translators.SetDefault(mtCfg.Provider); err != nil {
			app.logger.Warn("translation provider %q: %v", mtCfg.Provider, err)
		}
	}
}

func (app *Application) setupPanels() {
	ex := app.cfg.Explorer()
	app.explorerPanel = newExplorerPanel(app.workspaceRoot(), ex, app.logger)
	app.searchPanel = newSearchPanel()
	app.extensionsPanel = newExtensionsPanel()
	app.preferencesPanel = newPreferencesPanel(app)
}

func (app *Application) setupWatcher() {
	if !app.cfg.Explorer().AutoRefresh {
		return
	}
	w, err := explorer.NewWatcher(func(dir string) {
		app.Post(func() { app.explorerPanel.DirChanged(dir) })
	}, explorer.WithLogger(app.logger))
	if err != nil {
		app.logger.Warn("file watcher: %v", err)
		return
	}
	if err := w.Watch(app.workspaceRoot()); err != nil {
		app.logger.Warn("watch %s: %v", app.workspaceRoot(), err)
	}
	app.watcher = w
}

func (app *Application) setupPlugins() error {
	plugCfg := app.cfg.Plugins()
	if app.opts.NoPlugins || !plugCfg.Enabled {
		return nil
	}
	paths := app.opts.PluginPaths
	if len(paths) == 0 {
		paths = append([]string{filepath.Join(app.cfg.UserConfigDir(), "plugins")}, plugCfg.Dirs...)
	}
	sys := plugin.NewSystem(plugin.SystemConfig{
		Paths:     paths,
		Workbench: &workbenchProvider{activities: app.activities, sidebar: app.sidebar},
		Tabs:      app.tabs,
		Commands:  app.commands,
		Events:    app.bus,
		Services:  app.services,
		Config:    app.cfg,
		UI:        &uiProvider{app: app},
		Logger:    app.logger,
	})
	if err := sys.Initialize(); err != nil {
		return err
	}
	app.plugins = sys
	app.extensionsPanel.SetSystem(sys)
	return nil
}

func (app *Application) registerActivities() error {
	entries := []struct {
		cfg   workbench.ActivityConfig
		panel workbench.Panel
	}{
		{workbench.ActivityConfig{ID: "explorer", Icon: "files", Tooltip: "Explorer", Shortcut: "ctrl+e", Position: 0, Enabled: true}, app.explorerPanel},
		{workbench.ActivityConfig{ID: "search", Icon: "search", Tooltip: "Search", Shortcut: "ctrl+f", Position: 1, Enabled: true}, app.searchPanel},
		{workbench.ActivityConfig{ID: "extensions", Icon: "extensions", Tooltip: "Extensions", Shortcut: "ctrl+x", Position: 2, Enabled: true}, app.extensionsPanel},
		{workbench.ActivityConfig{ID: "preferences", Icon: "gear", Tooltip: "Preferences", Shortcut: "f1", Position: 0, Area: workbench.AreaBottom, Enabled: true}, app.preferencesPanel},
	}
	for _, e := range entries {
		p := e.panel
		if err := app.activities.Register(e.cfg, func() (workbench.Panel, error) { return p, nil }); err != nil {
			return err
		}
	}
	return nil
}

// workspaceRoot resolves the explorer and search root.
func (app *Application) workspaceRoot() string {
	if app.opts.WorkspacePath != "" {
		return app.opts.WorkspacePath
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// SetBackend attaches the terminal backend. Must be called before Run; a
// nil backend runs the application headless.
func (app *Application) SetBackend(b shell.Backend) error {
	if app.running.Load() {
		return ErrAlreadyRunning
	}
	app.backend = b
	return nil
}

// Run blocks in the main event loop until Quit. With no backend attached it
// still serves posted tasks, so plugins and commands work headless.
func (app *Application) Run() error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)
	defer app.shutdown()

	if app.plugins != nil && app.cfg.Plugins().AutoLoad {
		if _, err := app.plugins.LoadAll(); err != nil {
			app.logger.Warn("plugin autoload: %v", err)
		}
	}

	if app.backend == nil {
		return app.runHeadless()
	}

	if err := app.backend.Init(); err != nil {
		return &InitError{Component: "backend", Err: err}
	}
	defer app.backend.Fini()

	app.view = shell.NewView(app.backend, app.themes, app.logger)
	app.view.SetActivityBarVisible(app.cfg.Workbench().ActivityBarVisible)
	app.activities.SetView(app.view.ActivityBar())
	app.sidebar.SetView(app.view.Sidebar())
	app.tabs.SetView(app.view.TabStrip())

	if app.cfg.Workbench().RestoreSession {
		app.restoreSession()
	}
	app.view.SetStatus(app.statusLine())
	app.view.Render()

	events := make(chan shell.Event, 16)
	go app.poll(events)

	for {
		select {
		case <-app.done:
			return nil
		case fn := <-app.tasks:
			fn()
			app.view.Render()
		case ev := <-events:
			app.handleEvent(ev)
			app.view.Render()
		}
	}
}

// runHeadless serves posted tasks until Quit. Used without a terminal and
// by tests.
func (app *Application) runHeadless() error {
	for {
		select {
		case <-app.done:
			return nil
		case fn := <-app.tasks:
			fn()
		}
	}
}

// poll forwards backend events to the main loop. It stops on the EventNone
// the backend delivers after Fini.
func (app *Application) poll(events chan<- shell.Event) {
	for {
		ev := app.backend.PollEvent()
		if ev.Type == shell.EventNone {
			return
		}
		select {
		case events <- ev:
		case <-app.done:
			return
		}
	}
}

func (app *Application) handleEvent(ev shell.Event) {
	switch ev.Type {
	case shell.EventResize:
		app.view.Resize(ev.Width, ev.Height)
	case shell.EventKey:
		id, ok := app.lookupBinding(ev)
		if !ok {
			return
		}
		if err := app.Execute(id, nil); err != nil {
			app.logger.Error("command %s: %v", id, err)
			app.view.Notify(err.Error(), "error")
		}
	case shell.EventMouse, shell.EventPaste:
		// Accepted but not routed; the shell has no focusable widgets yet.
	}
}

// Execute runs a command through the registry with panic containment.
// Handlers that panic surface as a RecoveredPanicError instead of taking
// down the event loop.
func (app *Application) Execute(id string, args map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RecoveredPanicError{Value: r, Stack: string(debug.Stack())}
			app.logger.Error("command %s: %v", id, err)
		}
	}()
	return app.commands.Execute(id, args)
}

// Post schedules fn on the main loop goroutine. Background goroutines use
// it to touch UI-owned state. The send never blocks, so posting from the
// loop itself cannot deadlock.
func (app *Application) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	if !app.running.Load() {
		return ErrNotRunning
	}
	select {
	case app.tasks <- fn:
	case <-app.done:
		return ErrNotRunning
	default:
		go func() {
			select {
			case app.tasks <- fn:
			case <-app.done:
			}
		}()
	}
	return nil
}

// Quit requests shutdown. Safe to call from any goroutine, more than once.
func (app *Application) Quit() {
	app.quitOnce.Do(func() { close(app.done) })
}

// IsRunning reports whether the event loop is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// shutdown tears components down in reverse initialization order.
func (app *Application) shutdown() {
	app.saveSession()

	if app.plugins != nil {
		if err := app.plugins.Shutdown(); err != nil && !errors.Is(err, plugin.ErrNotInitialized) {
			app.logger.Warn("plugin shutdown: %v", err)
		}
	}
	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			app.logger.Warn("watcher close: %v", err)
		}
	}
	if app.searchPanel != nil {
		app.searchPanel.StopSearch()
	}
	if err := app.translators.Close(); err != nil {
		app.logger.Warn("translator close: %v", err)
	}
	if app.cfg.Dirty() {
		if err := app.cfg.Save(); err != nil {
			app.logger.Warn("config save: %v", err)
		}
	}

	app.logger.Info("polyglot shut down")
	if app.logFile != nil {
		app.logFile.Close()
	}
}

// saveSession persists open tabs and workbench layout to the state store.
func (app *Application) saveSession() {
	tabs := app.tabs.Tabs()
	paths := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if t.Path != "" {
			paths = append(paths, t.Path)
		}
	}
	if err := app.state.Set("session.tabs", paths); err != nil {
		app.logger.Warn("session tabs: %v", err)
	}
	active := ""
	if t, ok := app.tabs.Active(); ok {
		active = t.Path
	}
	if err := app.state.Set("session.active_tab", active); err != nil {
		app.logger.Warn("session active tab: %v", err)
	}
	if err := app.activities.SaveState(app.state); err != nil {
		app.logger.Warn("session activities: %v", err)
	}
	if err := app.state.Save(); err != nil {
		app.logger.Warn("state save: %v", err)
	}
}

// restoreSession reopens the previous session's tabs and workbench layout.
// Files opened through Options stay in front: they keep the active tab.
func (app *Application) restoreSession() {
	for _, path := range app.state.GetStrings("session.tabs") {
		app.tabs.Open(filepath.Base(path), path)
	}
	active := app.state.GetString("session.active_tab", "")
	if n := len(app.opts.Files); n > 0 {
		active = app.opts.Files[n-1]
	}
	if active != "" {
		for _, t := range app.tabs.Tabs() {
			if t.Path == active {
				if err := app.tabs.Activate(t.ID); err != nil {
					app.logger.Warn("restore tab %s: %v", active, err)
				}
				break
			}
		}
	}
	if err := app.activities.LoadState(app.state); err != nil {
		app.logger.Warn("restore activities: %v", err)
	}
}

// statusLine summarizes the session for the status bar.
func (app *Application) statusLine() string {
	return filepath.Base(app.workspaceRoot()) + "  " + app.themes.Current().Name
}

// notify surfaces a transient message on the status line and in the log.
// Callers off the main loop goroutine must go through Post.
func (app *Application) notify(message, level string) {
	app.logger.Info("notify [%s] %s", level, message)
	if app.view != nil {
		app.view.Notify(message, level)
	}
}

// emit publishes an application event on the bus.
func (app *Application) emit(topic string, data map[string]any) {
	if err := app.bus.Emit(event.Topic(topic), "app", data); err != nil {
		app.logger.Debug("emit %s: %v", topic, err)
	}
}

// Config returns the configuration system.
func (app *Application) Config() *config.Config { return app.cfg }

// EventBus returns the event bus.
func (app *Application) EventBus() *event.Bus { return app.bus }

// Themes returns the theme manager.
func (app *Application) Themes() *theme.Manager { return app.themes }

// Typography returns the typography manager.
func (app *Application) Typography() *theme.TypographyManager { return app.typography }

// Tabs returns the tab manager.
func (app *Application) Tabs() *workbench.TabManager { return app.tabs }

// Activities returns the activity-bar manager.
func (app *Application) Activities() *workbench.ActivityManager { return app.activities }

// Sidebar returns the sidebar manager.
func (app *Application) Sidebar() *workbench.SidebarManager { return app.sidebar }

// Commands returns the command registry.
func (app *Application) Commands() *command.Registry { return app.commands }

// Services returns the shared service registry.
func (app *Application) Services() *service.Registry { return app.services }

// Plugins returns the plugin system, nil when disabled.
func (app *Application) Plugins() *plugin.System { return app.plugins }

// Translators returns the machine-translation registry.
func (app *Application) Translators() *mt.Registry { return app.translators }
