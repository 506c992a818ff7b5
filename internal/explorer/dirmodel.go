package explorer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dshills/polyglot/internal/logging"
)

// FileInfo is a snapshot of one directory entry. Snapshots are recomputed on
// every Load or Refresh; Path identifies the entry across reloads.
type FileInfo struct {
	Name     string
	Path     string
	IsDir    bool
	Size     int64
	ModTime  time.Time
	IsHidden bool
}

// DirectoryModel lists a single directory for the explorer panel. Listings
// are cached until Refresh or SetPath. A missing or unreadable path yields an
// empty listing, never an error: the explorer keeps working while the user
// types a path.
//
// The model is owned by the UI goroutine and is not safe for concurrent use.
type DirectoryModel struct {
	path    string
	entries []FileInfo
	loaded  bool
	logger  *logging.Logger
}

// NewDirectoryModel creates a model rooted at path.
func NewDirectoryModel(path string, logger *logging.Logger) *DirectoryModel {
	if logger == nil {
		logger = logging.Null
	}
	return &DirectoryModel{
		path:   path,
		logger: logger.WithComponent("explorer"),
	}
}

// Path returns the directory the model lists.
func (m *DirectoryModel) Path() string { return m.path }

// SetPath points the model at a new directory and invalidates the cache.
func (m *DirectoryModel) SetPath(path string) {
	if path == m.path {
		return
	}
	m.path = path
	m.entries = nil
	m.loaded = false
}

// Refresh invalidates the cached listing; the next Load rereads the disk.
func (m *DirectoryModel) Refresh() {
	m.entries = nil
	m.loaded = false
}

// Load returns the directory listing, reading the disk only when the cache
// is invalid. Entries sort directories first, then case-insensitively by
// name. Per-entry stat failures are skipped.
func (m *DirectoryModel) Load() []FileInfo {
	if m.loaded {
		return m.entries
	}

	m.entries = nil
	m.loaded = true

	dirEntries, err := os.ReadDir(m.path)
	if err != nil {
		m.logger.Warn("list directory %s: %v", m.path, err)
		return m.entries
	}

	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			// The entry vanished between ReadDir and Stat.
			m.logger.Debug("stat %s: %v", de.Name(), err)
			continue
		}
		m.entries = append(m.entries, FileInfo{
			Name:     de.Name(),
			Path:     filepath.Join(m.path, de.Name()),
			IsDir:    de.IsDir(),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			IsHidden: isHidden(de.Name()),
		})
	}

	sort.SliceStable(m.entries, func(i, j int) bool {
		a, b := m.entries[i], m.entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	return m.entries
}

// Filter returns the cached listing narrowed by filter. A nil filter returns
// the listing unchanged.
func (m *DirectoryModel) Filter(filter *FileFilter) []FileInfo {
	entries := m.Load()
	if filter == nil {
		return entries
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if filter.Matches(e.Name, e.IsDir) {
			out = append(out, e)
		}
	}
	return out
}
