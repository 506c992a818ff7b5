package explorer

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/polyglot/internal/logging"
)

// defaultDebounce coalesces bursts of filesystem events (editors typically
// write, chmod, and rename in quick succession) into one change report.
const defaultDebounce = 100 * time.Millisecond

// Watcher reports directory changes so cached listings can be invalidated.
// Reports are debounced per directory and delivered through a single
// callback. The callback runs on the watcher goroutine; callers that own UI
// state must repost to their own loop.
type Watcher struct {
	fs       *fsnotify.Watcher
	onChange func(dir string)
	debounce time.Duration
	logger   *logging.Logger

	mu     sync.Mutex
	closed bool

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the event coalescing window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(l *logging.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher delivering change reports to onChange.
func NewWatcher(onChange func(dir string), opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:       fsw,
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   logging.Null,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithComponent("watcher")

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Watch adds a directory to the watch set.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	return w.fs.Add(dir)
}

// Unwatch removes a directory from the watch set.
func (w *Watcher) Unwatch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	return w.fs.Remove(dir)
}

// Close stops the watcher and waits for the event goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()

		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

// run drains filesystem events, coalescing them per directory until the
// debounce window elapses with no further activity.
func (w *Watcher) run() {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	pending := make(map[string]struct{})

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[filepath.Dir(ev.Name)] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error: %v", err)

		case <-timerCh:
			for dir := range pending {
				w.onChange(dir)
			}
			pending = make(map[string]struct{})
			timer = nil
			timerCh = nil

		case <-w.done:
			return
		}
	}
}
