package app

import (
	"fmt"
	"strings"

	"github.com/dshills/polyglot/internal/config"
	"github.com/dshills/polyglot/internal/explorer"
	"github.com/dshills/polyglot/internal/logging"
	"github.com/dshills/polyglot/internal/plugin"
	"github.com/dshills/polyglot/internal/search"
	"github.com/dshills/polyglot/internal/workbench"
)

// explorerPanel lists the workspace directory in the sidebar. Filtering
// follows the explorer configuration until commands change it.
type explorerPanel struct {
	workbench.BasePanel
	model      *explorer.DirectoryModel
	pattern    string
	showHidden bool
}

func newExplorerPanel(root string, cfg config.ExplorerConfig, logger *logging.Logger) *explorerPanel {
	return &explorerPanel{
		BasePanel:  workbench.NewBasePanel("explorer", "Explorer"),
		model:      explorer.NewDirectoryModel(root, logger),
		pattern:    cfg.Pattern,
		showHidden: cfg.ShowHidden,
	}
}

// Lines renders one row per entry, directories first as the model orders
// them, with a trailing slash on directories.
func (p *explorerPanel) Lines(width int) []string {
	filter := explorer.NewFileFilter(p.pattern, p.showHidden)
	entries := p.model.Filter(filter)
	if len(entries) == 0 {
		return []string{"(empty)"}
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if e.IsDir {
			name += "/"
		}
		lines = append(lines, name)
	}
	return lines
}

// Root returns the listed directory.
func (p *explorerPanel) Root() string { return p.model.Path() }

// SetRoot points the panel at another directory.
func (p *explorerPanel) SetRoot(path string) { p.model.SetPath(path) }

// Refresh drops the cached listing.
func (p *explorerPanel) Refresh() { p.model.Refresh() }

// ToggleHidden flips hidden-file visibility and reports the new state.
func (p *explorerPanel) ToggleHidden() bool {
	p.showHidden = !p.showHidden
	return p.showHidden
}

// SetPattern narrows the listing to names matching the glob pattern.
func (p *explorerPanel) SetPattern(pattern string) {
	p.pattern = pattern
}

// DirChanged refreshes the listing when the watched directory is the one
// on display.
func (p *explorerPanel) DirChanged(dir string) {
	if dir == p.model.Path() {
		p.model.Refresh()
	}
}

// searchPanel shows the query and streamed results of the current content
// search.
type searchPanel struct {
	workbench.BasePanel
	query   string
	matches []search.Match
	running bool
	err     error
	current *search.Search
}

func newSearchPanel() *searchPanel {
	return &searchPanel{
		BasePanel: workbench.NewBasePanel("search", "Search"),
	}
}

// Lines renders the query, a progress or summary row, and one row per match.
func (p *searchPanel) Lines(width int) []string {
	if p.query == "" {
		return []string{"no search yet"}
	}
	lines := []string{"query: " + p.query}
	switch {
	case p.running:
		lines = append(lines, fmt.Sprintf("searching... %d", len(p.matches)))
	case p.err != nil:
		lines = append(lines, "failed: "+p.err.Error())
	default:
		lines = append(lines, fmt.Sprintf("%d matches", len(p.matches)))
	}
	for _, m := range p.matches {
		text := strings.TrimSpace(m.Text)
		lines = append(lines, fmt.Sprintf("%s:%d %s", m.Path, m.Line, text))
	}
	return lines
}

// Begin resets the panel for a new run and adopts its handle.
func (p *searchPanel) Begin(query string, s *search.Search) {
	p.StopSearch()
	p.query = query
	p.matches = nil
	p.err = nil
	p.running = true
	p.current = s
}

// AddMatch appends one streamed result.
func (p *searchPanel) AddMatch(m search.Match) {
	p.matches = append(p.matches, m)
}

// Finish marks the run complete.
func (p *searchPanel) Finish(err error) {
	p.running = false
	p.err = err
	p.current = nil
}

// StopSearch cancels the current run, if any.
func (p *searchPanel) StopSearch() {
	if p.current != nil {
		p.current.Stop()
		p.current = nil
	}
	p.running = false
}

// MatchCount reports how many results arrived so far.
func (p *searchPanel) MatchCount() int { return len(p.matches) }

// extensionsPanel lists discovered plugins and their lifecycle state.
type extensionsPanel struct {
	workbench.BasePanel
	system *plugin.System
}

func newExtensionsPanel() *extensionsPanel {
	return &extensionsPanel{
		BasePanel: workbench.NewBasePanel("extensions", "Extensions"),
	}
}

// SetSystem attaches the plugin system once it initializes.
func (p *extensionsPanel) SetSystem(sys *plugin.System) {
	p.system = sys
}

// Lines renders one row per plugin: a state marker, name, version, and the
// recorded error for failed loads.
func (p *extensionsPanel) Lines(width int) []string {
	if p.system == nil {
		return []string{"plugins disabled"}
	}
	infos := p.system.Plugins()
	if len(infos) == 0 {
		return []string{"no plugins installed"}
	}
	lines := make([]string, 0, len(infos))
	for _, info := range infos {
		marker := "○"
		if info.State == plugin.StateLoaded {
			marker = "●"
		}
		line := fmt.Sprintf("%s %s %s", marker, info.Name, info.Manifest.Version)
		lines = append(lines, line)
		if info.Error != nil {
			lines = append(lines, "  ! "+info.Error.Error())
		}
	}
	return lines
}

// preferencesPanel summarizes the live configuration: theme, typography,
// translation providers, plugin counts.
type preferencesPanel struct {
	workbench.BasePanel
	app *Application
}

func newPreferencesPanel(app *Application) *preferencesPanel {
	return &preferencesPanel{
		BasePanel: workbench.NewBasePanel("preferences", "Preferences"),
		app:       app,
	}
}

func (p *preferencesPanel) Lines(width int) []string {
	app := p.app
	base := app.typography.Base()

	lines := []string{
		"theme: " + app.themes.Current().Name,
		fmt.Sprintf("font: %s %g", base.BaseFontFamily, base.BaseFontSize),
		fmt.Sprintf("sidebar width: %d", app.sidebar.Width()),
	}

	if names := app.translators.Names(); len(names) > 0 {
		def := app.translators.Default()
		if def == "" {
			def = "none"
		}
		lines = append(lines,
			"translator: "+def,
			"providers: "+strings.Join(names, ", "))
	} else {
		lines = append(lines, "translator: not configured")
	}

	if app.plugins != nil {
		lines = append(lines, fmt.Sprintf("plugins: %d installed", app.plugins.Count()))
	} else {
		lines = append(lines, "plugins: disabled")
	}

	lines = append(lines, "log level: "+app.cfg.Logging().Level)
	return lines
}
