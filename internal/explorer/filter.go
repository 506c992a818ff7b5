// Package explorer provides the file-browsing building blocks for the
// workbench sidebar: filename filtering, cached directory listings, change
// watching, and undoable file operations.
package explorer

import (
	"path"
	"strings"
)

// FileFilter decides which directory entries the explorer shows. Filters are
// immutable values; build a new one instead of mutating a shared instance.
//
// A pattern may contain several sub-patterns separated by ";". A name matches
// when any sub-pattern matches. Sub-patterns containing a glob metacharacter
// (*, ? or [) match as case-insensitive shell globs; anything else is a
// case-insensitive substring test.
type FileFilter struct {
	pattern       string
	includeHidden bool
	subs          []subPattern
}

type subPattern struct {
	text string // lower-cased
	glob bool
}

// NewFileFilter compiles pattern into a filter. An empty pattern matches
// every entry that passes the hidden rule.
func NewFileFilter(pattern string, includeHidden bool) *FileFilter {
	f := &FileFilter{
		pattern:       pattern,
		includeHidden: includeHidden,
	}
	for _, part := range strings.Split(pattern, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f.subs = append(f.subs, subPattern{
			text: strings.ToLower(part),
			glob: strings.ContainsAny(part, "*?["),
		})
	}
	return f
}

// Pattern returns the raw pattern the filter was built from.
func (f *FileFilter) Pattern() string { return f.pattern }

// IncludeHidden reports whether dotfiles pass the filter.
func (f *FileFilter) IncludeHidden() bool { return f.includeHidden }

// Matches reports whether a directory entry passes the filter. The hidden
// rule is checked first for files and directories alike. Directories are
// exempt from the pattern so navigation survives any filter; files go
// through the full predicate.
func (f *FileFilter) Matches(name string, isDir bool) bool {
	if !f.includeHidden && isHidden(name) {
		return false
	}
	if isDir || len(f.subs) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, sub := range f.subs {
		if sub.glob {
			if ok, err := path.Match(sub.text, lower); err == nil && ok {
				return true
			}
		} else if strings.Contains(lower, sub.text) {
			return true
		}
	}
	return false
}

// isHidden reports whether name is a dotfile. "." and ".." are navigation
// entries, not hidden files.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
