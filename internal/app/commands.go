package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/polyglot/internal/catalog"
	"github.com/dshills/polyglot/internal/command"
	"github.com/dshills/polyglot/internal/explorer"
	"github.com/dshills/polyglot/internal/mt"
	"github.com/dshills/polyglot/internal/search"
	"github.com/dshills/polyglot/internal/shell"
)

// keyBindings routes terminal keys to command ids. The Keybinding field on
// each command mirrors this table for display.
var keyBindings = map[shell.Key]string{
	shell.KeyCtrlQ: "workbench.quit",
	shell.KeyCtrlB: "workbench.toggleSidebar",
	shell.KeyCtrlE: "view.explorer",
	shell.KeyCtrlF: "view.search",
	shell.KeyCtrlX: "view.extensions",
	shell.KeyF1:    "view.preferences",
	shell.KeyCtrlW: "tab.close",
	shell.KeyCtrlN: "tab.next",
	shell.KeyCtrlP: "tab.previous",
	shell.KeyCtrlS: "session.save",
	shell.KeyF2:    "theme.cycle",
}

func (app *Application) lookupBinding(ev shell.Event) (string, bool) {
	if ev.Key == shell.KeyRune {
		return "", false
	}
	id, ok := keyBindings[ev.Key]
	return id, ok
}

// registerCommands installs the built-in command set.
func (app *Application) registerCommands() error {
	cmds := []*command.Command{
		{
			ID: "workbench.quit", Title: "Quit", Category: "Workbench",
			Keybinding: "ctrl+q", Source: "core",
			Handler: func(map[string]any) error {
				app.Quit()
				return nil
			},
		},
		{
			ID: "workbench.toggleSidebar", Title: "Toggle Sidebar", Category: "Workbench",
			Keybinding: "ctrl+b", Source: "core",
			Handler: func(map[string]any) error {
				app.sidebar.SetVisible(!app.sidebar.Visible())
				return nil
			},
		},
		{
			ID: "workbench.toggleActivityBar", Title: "Toggle Activity Bar", Category: "Workbench",
			Source: "core",
			Handler: func(map[string]any) error {
				if app.view != nil {
					app.view.SetActivityBarVisible(!app.view.ActivityBarVisible())
				}
				return nil
			},
		},
		{
			ID: "view.explorer", Title: "Show Explorer", Category: "View",
			Keybinding: "ctrl+e", Source: "core",
			Handler: app.toggleActivity("explorer"),
		},
		{
			ID: "view.search", Title: "Show Search", Category: "View",
			Keybinding: "ctrl+f", Source: "core",
			Handler: app.toggleActivity("search"),
		},
		{
			ID: "view.extensions", Title: "Show Extensions", Category: "View",
			Keybinding: "ctrl+x", Source: "core",
			Handler: app.toggleActivity("extensions"),
		},
		{
			ID: "view.preferences", Title: "Show Preferences", Category: "View",
			Keybinding: "f1", Source: "core",
			Handler: app.toggleActivity("preferences"),
		},
		{
			ID: "tab.close", Title: "Close Tab", Category: "Tabs",
			Keybinding: "ctrl+w", Source: "core",
			Handler: func(map[string]any) error {
				active, ok := app.tabs.Active()
				if !ok {
					return ErrNoActiveTab
				}
				return app.tabs.Close(active.ID)
			},
		},
		{
			ID: "tab.next", Title: "Next Tab", Category: "Tabs",
			Keybinding: "ctrl+n", Source: "core",
			Handler: func(map[string]any) error { return app.cycleTab(1) },
		},
		{
			ID: "tab.previous", Title: "Previous Tab", Category: "Tabs",
			Keybinding: "ctrl+p", Source: "core",
			Handler: func(map[string]any) error { return app.cycleTab(-1) },
		},
		{
			ID: "file.open", Title: "Open File", Category: "File",
			Source:  "core",
			Handler: app.cmdFileOpen,
		},
		{
			ID: "catalog.stats", Title: "Catalog Statistics", Category: "File",
			Description: "Parse the active PO/POT catalog and report translation progress",
			Source:      "core",
			Handler:     app.cmdCatalogStats,
		},
		{
			ID: "mt.translate", Title: "Translate Text", Category: "Translate",
			Description: "Send text to the configured machine-translation provider",
			Source:      "core",
			Handler:     app.cmdTranslate,
		},
		{
			ID: "explorer.refresh", Title: "Refresh Explorer", Category: "Explorer",
			Source: "core",
			Handler: func(map[string]any) error {
				app.explorerPanel.Refresh()
				return nil
			},
		},
		{
			ID: "explorer.toggleHidden", Title: "Toggle Hidden Files", Category: "Explorer",
			Source: "core",
			Handler: func(map[string]any) error {
				app.explorerPanel.ToggleHidden()
				return nil
			},
		},
		{
			ID: "explorer.setPattern", Title: "Filter Explorer", Category: "Explorer",
			Source: "core",
			Handler: func(args map[string]any) error {
				pattern, _ := stringArg(args, "pattern")
				app.explorerPanel.SetPattern(pattern)
				return nil
			},
		},
		{
			ID: "explorer.setRoot", Title: "Change Explorer Root", Category: "Explorer",
			Source:  "core",
			Handler: app.cmdExplorerSetRoot,
		},
		{
			ID: "explorer.newFile", Title: "New File", Category: "Explorer",
			Source:  "core",
			Handler: app.fileOpCommand("path", func(p string) error { return app.fileOps.CreateFile(p) }),
		},
		{
			ID: "explorer.newDir", Title: "New Directory", Category: "Explorer",
			Source:  "core",
			Handler: app.fileOpCommand("path", func(p string) error { return app.fileOps.CreateDir(p) }),
		},
		{
			ID: "explorer.delete", Title: "Delete", Category: "Explorer",
			Description: "Move a file or directory to the trash",
			Source:      "core",
			Handler:     app.fileOpCommand("path", func(p string) error { return app.fileOps.Delete(p) }),
		},
		{
			ID: "explorer.rename", Title: "Rename", Category: "Explorer",
			Source:  "core",
			Handler: app.cmdExplorerRename,
		},
		{
			ID: "explorer.undo", Title: "Undo File Operation", Category: "Explorer",
			Source: "core",
			Handler: func(map[string]any) error {
				if err := app.fileOps.Undo(); err != nil {
					return err
				}
				app.explorerPanel.Refresh()
				return nil
			},
		},
		{
			ID: "explorer.redo", Title: "Redo File Operation", Category: "Explorer",
			Source: "core",
			Handler: func(map[string]any) error {
				if err := app.fileOps.Redo(); err != nil {
					return err
				}
				app.explorerPanel.Refresh()
				return nil
			},
		},
		{
			ID: "theme.set", Title: "Set Theme", Category: "Theme",
			Source: "core",
			Handler: func(args map[string]any) error {
				name, ok := stringArg(args, "name")
				if !ok {
					return fmt.Errorf("%w %q", ErrMissingArg, "name")
				}
				return app.themes.Apply(name)
			},
		},
		{
			ID: "theme.cycle", Title: "Cycle Theme", Category: "Theme",
			Keybinding: "f2", Source: "core",
			Handler: func(map[string]any) error { return app.cycleTheme() },
		},
		{
			ID: "search.run", Title: "Search Workspace", Category: "Search",
			Source:  "core",
			Handler: app.cmdSearchRun,
		},
		{
			ID: "search.stop", Title: "Stop Search", Category: "Search",
			Source: "core",
			Handler: func(map[string]any) error {
				app.searchPanel.StopSearch()
				return nil
			},
		},
		{
			ID: "plugin.load", Title: "Load Plugin", Category: "Plugins",
			Source:  "core",
			Handler: app.pluginCommand(func(name string) error { return app.plugins.Load(name) }),
		},
		{
			ID: "plugin.unload", Title: "Unload Plugin", Category: "Plugins",
			Source:  "core",
			Handler: app.pluginCommand(func(name string) error { return app.plugins.Unload(name) }),
		},
		{
			ID: "plugin.reload", Title: "Reload Plugin", Category: "Plugins",
			Source:  "core",
			Handler: app.pluginCommand(func(name string) error { return app.plugins.Reload(name) }),
		},
		{
			ID: "plugin.loadAll", Title: "Load All Plugins", Category: "Plugins",
			Source: "core",
			Handler: func(map[string]any) error {
				if app.plugins == nil {
					return ErrPluginsDisabled
				}
				_, err := app.plugins.LoadAll()
				return err
			},
		},
		{
			ID: "session.save", Title: "Save Session", Category: "Workbench",
			Keybinding: "ctrl+s", Source: "core",
			Handler: func(map[string]any) error {
				app.saveSession()
				app.notify("session saved", "success")
				return nil
			},
		},
	}
	return app.commands.RegisterAll(cmds)
}

// toggleActivity builds a handler that toggles one activity-bar entry.
func (app *Application) toggleActivity(id string) command.Handler {
	return func(map[string]any) error {
		return app.activities.Toggle(id)
	}
}

// fileOpCommand builds a handler that resolves one path argument against the
// explorer root, applies op, and refreshes the listing.
func (app *Application) fileOpCommand(key string, op func(string) error) command.Handler {
	return func(args map[string]any) error {
		path, ok := stringArg(args, key)
		if !ok {
			return fmt.Errorf("%w %q", ErrMissingArg, key)
		}
		if err := op(app.resolvePath(path)); err != nil {
			return err
		}
		app.explorerPanel.Refresh()
		return nil
	}
}

// pluginCommand builds a handler for one named-plugin operation.
func (app *Application) pluginCommand(op func(string) error) command.Handler {
	return func(args map[string]any) error {
		if app.plugins == nil {
			return ErrPluginsDisabled
		}
		name, ok := stringArg(args, "name")
		if !ok {
			return fmt.Errorf("%w %q", ErrMissingArg, "name")
		}
		return op(name)
	}
}

func (app *Application) cmdFileOpen(args map[string]any) error {
	path, ok := stringArg(args, "path")
	if !ok {
		return fmt.Errorf("%w %q", ErrMissingArg, "path")
	}
	path = app.resolvePath(path)
	app.tabs.Open(filepath.Base(path), path)

	// Opening a gettext catalog reports its translation progress right
	// away; a probe failure is not an open failure.
	if isCatalogPath(path) {
		if err := app.showCatalogStats(path); err != nil {
			app.notify(err.Error(), "warning")
		}
	}
	return nil
}

func (app *Application) cmdCatalogStats(args map[string]any) error {
	path, ok := stringArg(args, "path")
	if !ok {
		active, haveTab := app.tabs.Active()
		if !haveTab || active.Path == "" {
			return ErrNoActiveTab
		}
		path = active.Path
	}
	return app.showCatalogStats(path)
}

func (app *Application) showCatalogStats(path string) error {
	file, err := catalog.ParseFile(path)
	if err != nil {
		return NewOperationError("parse", path, err)
	}
	stats := file.Stats()
	app.notify(fmt.Sprintf("%s: %d/%d translated (%.1f%%), %d fuzzy, %d untranslated",
		filepath.Base(path), stats.Translated, stats.Total, stats.Percent(),
		stats.Fuzzy, stats.Untranslated), "info")
	return nil
}

func isCatalogPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".po", ".pot":
		return true
	}
	return false
}

func (app *Application) cmdTranslate(args map[string]any) error {
	text, _ := stringArg(args, "text")
	target, _ := stringArg(args, "target")
	source, _ := stringArg(args, "source")
	hint, _ := stringArg(args, "context")
	provider, _ := stringArg(args, "provider")

	req := mt.Request{Text: text, SourceLang: source, TargetLang: target, Context: hint}
	if err := req.Validate(); err != nil {
		return err
	}

	// Provider calls block on the network; run off the loop and post the
	// outcome back.
	go func() {
		timeout := time.Duration(app.cfg.MT().TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res, err := app.translators.Translate(ctx, provider, req)
		app.Post(func() {
			if err != nil {
				app.notify("translate: "+err.Error(), "error")
				return
			}
			app.notify(res.Provider+": "+res.Text, "success")
			app.emit("mt.translated", map[string]any{
				"text":     res.Text,
				"provider": res.Provider,
				"model":    res.Model,
			})
		})
	}()
	return nil
}

func (app *Application) cmdExplorerSetRoot(args map[string]any) error {
	path, ok := stringArg(args, "path")
	if !ok {
		return fmt.Errorf("%w %q", ErrMissingArg, "path")
	}
	path = app.resolvePath(path)
	old := app.explorerPanel.Root()
	app.explorerPanel.SetRoot(path)
	if app.watcher != nil {
		if err := app.watcher.Unwatch(old); err != nil {
			app.logger.Warn("unwatch %s: %v", old, err)
		}
		if err := app.watcher.Watch(path); err != nil {
			app.logger.Warn("watch %s: %v", path, err)
		}
	}
	return nil
}

func (app *Application) cmdExplorerRename(args map[string]any) error {
	from, ok := stringArg(args, "from")
	if !ok {
		return fmt.Errorf("%w %q", ErrMissingArg, "from")
	}
	to, ok := stringArg(args, "to")
	if !ok {
		return fmt.Errorf("%w %q", ErrMissingArg, "to")
	}
	if err := app.fileOps.Rename(app.resolvePath(from), app.resolvePath(to)); err != nil {
		return err
	}
	app.explorerPanel.Refresh()
	return nil
}

func (app *Application) cmdSearchRun(args map[string]any) error {
	query, ok := stringArg(args, "query")
	if !ok {
		return fmt.Errorf("%w %q", ErrMissingArg, "query")
	}
	sc := app.cfg.Search()
	opts := search.Options{
		Root:          app.explorerPanel.Root(),
		Query:         query,
		Regex:         boolArg(args, "regex"),
		CaseSensitive: boolArg(args, "case"),
		WholeWord:     boolArg(args, "word"),
		MaxResults:    sc.MaxResults,
		MaxFileSize:   int64(sc.MaxFileSize),
		ContextLines:  sc.ContextLines,
	}
	if sc.IncludeHidden {
		opts.Include = explorer.NewFileFilter("", true)
	}

	s, err := app.searcher.Start(context.Background(), opts, func(m search.Match) {
		app.Post(func() { app.searchPanel.AddMatch(m) })
	})
	if err != nil {
		return err
	}
	app.searchPanel.Begin(query, s)
	if app.activities.Current() != "search" {
		if err := app.activities.Toggle("search"); err != nil {
			app.logger.Warn("show search: %v", err)
		}
	}

	go func() {
		err := s.Wait()
		app.Post(func() {
			app.searchPanel.Finish(err)
			if err := app.activities.SetBadge("search", app.searchPanel.MatchCount()); err != nil {
				app.logger.Warn("search badge: %v", err)
			}
		})
	}()
	return nil
}

// cycleTab activates the tab step positions away in strip order.
func (app *Application) cycleTab(step int) error {
	tabs := app.tabs.Tabs()
	if len(tabs) == 0 {
		return ErrNoActiveTab
	}
	idx := 0
	if active, ok := app.tabs.Active(); ok {
		for i, t := range tabs {
			if t.ID == active.ID {
				idx = i
				break
			}
		}
	}
	next := (idx + step + len(tabs)) % len(tabs)
	return app.tabs.Activate(tabs[next].ID)
}

// cycleTheme applies the next registered theme in name order.
func (app *Application) cycleTheme() error {
	names := app.themes.Names()
	if len(names) == 0 {
		return nil
	}
	current := app.themes.Current().Name
	idx := 0
	for i, name := range names {
		if name == current {
			idx = (i + 1) % len(names)
			break
		}
	}
	return app.themes.Apply(names[idx])
}

// resolvePath makes path absolute against the explorer root.
func (app *Application) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(app.explorerPanel.Root(), path)
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func boolArg(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
