package plugin

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/polyglot/internal/logging"
)

// entryCandidates are the entry script names tried in order when the
// manifest does not name one.
var entryCandidates = []string{"plugin.lua", "init.lua"}

// PluginInfo is the discovery record for one plugin. State and Error are
// mutated by the manager as the plugin is loaded and unloaded.
type PluginInfo struct {
	Name     string
	Path     string
	Manifest *Manifest
	State    State
	Error    error
}

// Loader discovers plugins in the configured search paths.
type Loader struct {
	paths      []string
	discovered map[string]*PluginInfo
	logger     *logging.Logger
}

// NewLoader creates a loader. Empty paths fall back to DefaultPluginPaths.
func NewLoader(paths []string, logger *logging.Logger) *Loader {
	if len(paths) == 0 {
		paths = DefaultPluginPaths()
	}
	if logger == nil {
		logger = logging.Null
	}
	return &Loader{
		paths:      paths,
		discovered: make(map[string]*PluginInfo),
		logger:     logger.WithComponent("plugin.loader"),
	}
}

// DefaultPluginPaths returns the standard plugin search paths.
func DefaultPluginPaths() []string {
	paths := make([]string, 0, 3)

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "polyglot", "plugins"),
			filepath.Join(home, ".local", "share", "polyglot", "plugins"),
		)
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".polyglot", "plugins"))
	}
	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// AddPath appends a search path.
func (l *Loader) AddPath(path string) {
	l.paths = append(l.paths, path)
}

// Discover scans the search paths and rebuilds the plugin listing. For a
// name found in multiple paths the first path wins. The result is sorted
// by name.
func (l *Loader) Discover() ([]*PluginInfo, error) {
	l.discovered = make(map[string]*PluginInfo)

	for _, base := range l.paths {
		l.discoverInPath(base)
	}
	return l.List(), nil
}

func (l *Loader) discoverInPath(base string) {
	entries, err := os.ReadDir(base)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("plugin path %s: %v", base, err)
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			if filepath.Ext(entry.Name()) == ".lua" {
				name := strings.TrimSuffix(entry.Name(), ".lua")
				l.addSingleFile(name, base, entry.Name())
			}
			continue
		}

		info := l.inspect(entry.Name(), filepath.Join(base, entry.Name()))
		if info == nil {
			continue
		}
		if _, exists := l.discovered[info.Name]; exists {
			continue
		}
		l.discovered[info.Name] = info
	}
}

// addSingleFile records a single-file plugin with a synthesized manifest.
func (l *Loader) addSingleFile(name, dir, file string) {
	if _, exists := l.discovered[name]; exists {
		return
	}
	manifest := NewManifestMinimal(name, dir)
	manifest.Main = file

	l.discovered[name] = &PluginInfo{
		Name:     name,
		Path:     dir,
		Manifest: manifest,
		State:    StateDiscovered,
	}
}

// inspect examines one plugin directory. Directories without an entry
// script are logged and excluded; a broken manifest is logged and replaced
// with a minimal one.
func (l *Loader) inspect(name, path string) *PluginInfo {
	var manifest *Manifest
	manifestPath := filepath.Join(path, ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		m, err := LoadManifest(manifestPath)
		if err != nil {
			l.logger.Warn("plugin %s: ignoring manifest: %v", name, err)
		} else {
			manifest = m
			name = m.Name
		}
	}
	if manifest == nil {
		manifest = NewManifestMinimal(name, path)
	}

	if !l.resolveEntry(path, manifest) {
		l.logger.Warn("plugin directory %s has no entry script, skipping", path)
		return nil
	}

	return &PluginInfo{
		Name:     name,
		Path:     path,
		Manifest: manifest,
		State:    StateDiscovered,
	}
}

// resolveEntry fills Manifest.Main with an entry script that exists on
// disk and reports whether one was found.
func (l *Loader) resolveEntry(path string, m *Manifest) bool {
	if m.Main != "" {
		if _, err := os.Stat(filepath.Join(path, m.Main)); err == nil {
			return true
		}
		l.logger.Warn("plugin %s: declared entry %s missing", m.Name, m.Main)
	}
	for _, candidate := range entryCandidates {
		if _, err := os.Stat(filepath.Join(path, candidate)); err == nil {
			m.Main = candidate
			return true
		}
	}
	return false
}

// Get returns the discovery record for a plugin.
func (l *Loader) Get(name string) (*PluginInfo, bool) {
	info, ok := l.discovered[name]
	return info, ok
}

// List returns the discovered plugins sorted by name.
func (l *Loader) List() []*PluginInfo {
	infos := make([]*PluginInfo, 0, len(l.discovered))
	for _, info := range l.discovered {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Names returns the discovered plugin names sorted.
func (l *Loader) Names() []string {
	names := make([]string, 0, len(l.discovered))
	for name := range l.discovered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of discovered plugins.
func (l *Loader) Count() int {
	return len(l.discovered)
}
