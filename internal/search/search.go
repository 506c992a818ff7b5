// Package search provides background content search over a directory tree.
// A search runs on its own goroutine and streams matches through a sink
// callback; cancellation is cooperative and stopping is bounded.
package search

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dshills/polyglot/internal/explorer"
	"github.com/dshills/polyglot/internal/logging"
)

// Common errors for search operations.
var (
	// ErrEmptyQuery indicates Start was called without a query.
	ErrEmptyQuery = errors.New("empty search query")

	// ErrMissingRoot indicates Start was called without a root directory.
	ErrMissingRoot = errors.New("missing search root")

	// ErrStopTimeout indicates the worker did not exit within the stop bound.
	ErrStopTimeout = errors.New("search worker did not stop in time")
)

// errMaxResults aborts the walk once the result cap is reached.
var errMaxResults = errors.New("max results reached")

const (
	// DefaultMaxFileSize skips files larger than 1MB.
	DefaultMaxFileSize = 1 << 20

	// DefaultMaxResults caps the number of streamed matches.
	DefaultMaxResults = 1000

	// defaultStopTimeout bounds how long Stop waits for the worker.
	defaultStopTimeout = 3 * time.Second

	// ctxCheckInterval is how many lines are scanned between context checks.
	ctxCheckInterval = 256

	scanBufferSize = 64 * 1024
	maxLineSize    = 1024 * 1024
)

// Options configures one search run.
type Options struct {
	// Root is the directory to walk.
	Root string

	// Query is the literal text or regular expression to find.
	Query string

	// Regex interprets Query as a regular expression.
	Regex bool

	// CaseSensitive disables case folding.
	CaseSensitive bool

	// WholeWord requires word boundaries around the match.
	WholeWord bool

	// Include narrows the files searched. Nil searches every non-hidden
	// file.
	Include *explorer.FileFilter

	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize int64

	// MaxResults stops the search after this many matches.
	MaxResults int

	// ContextLines attaches this many lines before and after each match.
	ContextLines int
}

// Match is one search hit.
type Match struct {
	Path   string
	Line   int // 1-based
	Column int // 1-based byte offset
	Text   string
	Before []string
	After  []string
}

// Sink receives matches as they are found. It is called from the worker
// goroutine; callers that own UI state must repost.
type Sink func(Match)

// Engine starts search runs.
type Engine struct {
	logger *logging.Logger
}

// NewEngine creates a search engine.
func NewEngine(logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Null
	}
	return &Engine{logger: logger.WithComponent("search")}
}

// Search is a handle to one running search.
type Search struct {
	cancel      context.CancelFunc
	done        chan struct{}
	stopTimeout time.Duration

	mu    sync.Mutex
	err   error
	count int
}

// Start validates opts and launches the worker goroutine. Matches stream to
// sink until the walk completes, the context is cancelled, or the result cap
// is reached.
func (e *Engine) Start(ctx context.Context, opts Options, sink Sink) (*Search, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if opts.Root == "" {
		return nil, ErrMissingRoot
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if sink == nil {
		sink = func(Match) {}
	}

	m, err := compileMatcher(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Search{
		cancel:      cancel,
		done:        make(chan struct{}),
		stopTimeout: defaultStopTimeout,
	}

	go e.run(ctx, opts, m, sink, s)
	return s, nil
}

// Done is closed when the worker exits.
func (s *Search) Done() <-chan struct{} { return s.done }

// Count returns the number of matches streamed so far.
func (s *Search) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Err returns the terminal error, if any. Cancellation and the result cap
// are normal completions, not errors.
func (s *Search) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the worker exits and returns its terminal error.
func (s *Search) Wait() error {
	<-s.done
	return s.Err()
}

// Stop cancels the search and waits for the worker, bounded by the stop
// timeout. A worker still running past the bound yields ErrStopTimeout.
func (s *Search) Stop() error {
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-time.After(s.stopTimeout):
		return ErrStopTimeout
	}
}

// run walks the tree, checking the context between files.
func (e *Engine) run(ctx context.Context, opts Options, m *matcher, sink Sink, s *Search) {
	defer close(s.done)
	defer s.cancel()

	err := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			e.logger.Debug("walk %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			if path != opts.Root && !includeEntry(opts.Include, d.Name(), true) {
				return fs.SkipDir
			}
			return nil
		}
		if !includeEntry(opts.Include, d.Name(), false) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > opts.MaxFileSize {
			return nil
		}

		return e.searchFile(ctx, path, opts, m, sink, s)
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, errMaxResults) {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		e.logger.Warn("search %s: %v", opts.Root, err)
	}
}

// searchFile scans one file line by line, streaming matches to sink.
func (e *Engine) searchFile(ctx context.Context, path string, opts Options, m *matcher, sink Sink, s *Search) error {
	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Debug("read %s: %v", path, err)
		return nil
	}
	if isBinary(data) {
		return nil
	}

	lines, err := splitLines(data)
	if err != nil {
		e.logger.Debug("scan %s: %v", path, err)
		return nil
	}

	for i, line := range lines {
		if i%ctxCheckInterval == 0 && ctx.Err() != nil {
			return ctx.Err()
		}

		col, ok := m.find(line)
		if !ok {
			continue
		}

		sink(Match{
			Path:   path,
			Line:   i + 1,
			Column: col + 1,
			Text:   line,
			Before: contextSlice(lines, i-opts.ContextLines, i),
			After:  contextSlice(lines, i+1, i+1+opts.ContextLines),
		})

		s.mu.Lock()
		s.count++
		full := s.count >= opts.MaxResults
		s.mu.Unlock()
		if full {
			return errMaxResults
		}
	}
	return nil
}

// includeEntry applies the include filter; with no filter, hidden entries
// are still skipped so .git and friends stay out of results.
func includeEntry(f *explorer.FileFilter, name string, isDir bool) bool {
	if f != nil {
		return f.Matches(name, isDir)
	}
	return !strings.HasPrefix(name, ".") || name == "." || name == ".."
}

// contextSlice clamps [from, to) to the line range and copies it.
func contextSlice(lines []string, from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > len(lines) {
		to = len(lines)
	}
	if from >= to {
		return nil
	}
	out := make([]string, to-from)
	copy(out, lines[from:to])
	return out
}

// splitLines splits file content into lines, tolerating long lines up to
// maxLineSize.
func splitLines(data []byte) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, scanBufferSize), maxLineSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// isBinary reports whether the content looks binary (NUL in the first KB).
func isBinary(data []byte) bool {
	probe := data
	if len(probe) > 1024 {
		probe = probe[:1024]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

// matcher is the compiled form of a query.
type matcher struct {
	re      *regexp.Regexp
	literal string
	fold    bool
	word    bool
}

func compileMatcher(opts Options) (*matcher, error) {
	if opts.Regex {
		expr := opts.Query
		if opts.WholeWord {
			expr = `\b(?:` + expr + `)\b`
		}
		if !opts.CaseSensitive {
			expr = `(?i)` + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile query: %w", err)
		}
		return &matcher{re: re}, nil
	}

	lit := opts.Query
	if !opts.CaseSensitive {
		lit = strings.ToLower(lit)
	}
	return &matcher{literal: lit, fold: !opts.CaseSensitive, word: opts.WholeWord}, nil
}

// find returns the byte offset of the first match in line.
func (m *matcher) find(line string) (int, bool) {
	if m.re != nil {
		loc := m.re.FindStringIndex(line)
		if loc == nil {
			return 0, false
		}
		return loc[0], true
	}

	haystack := line
	if m.fold {
		haystack = strings.ToLower(line)
	}

	from := 0
	for {
		idx := strings.Index(haystack[from:], m.literal)
		if idx < 0 {
			return 0, false
		}
		idx += from
		if !m.word || isWordBoundary(haystack, idx, len(m.literal)) {
			return idx, true
		}
		from = idx + 1
	}
}

// isWordBoundary reports whether the match at [idx, idx+n) is delimited by
// non-word bytes.
func isWordBoundary(s string, idx, n int) bool {
	if idx > 0 && isWordByte(s[idx-1]) {
		return false
	}
	if end := idx + n; end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
