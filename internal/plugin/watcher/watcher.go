package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWatcherClosed is returned when a path is added to a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// DefaultDebounce is the quiet period before a batch of changes is
// reported. Editors and package managers touch files in bursts; one
// reload per burst is enough.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports batches of changed plugin source paths.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	changes  chan []string
	log      *slog.Logger

	mu     sync.Mutex
	closed bool

	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a batch is emitted.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(log *slog.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// New creates a watcher observing the given directories. Directories
// that do not exist are skipped; plugin search paths commonly include
// locations the user never created.
func New(paths []string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		debounce: DefaultDebounce,
		changes:  make(chan []string, 1),
		log:      slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, path := range paths {
		if err := w.Watch(path); err != nil {
			w.log.Debug("skipping watch path", "path", path, "error", err)
		}
	}
	return w, nil
}

// Watch adds a directory, including its existing subdirectories.
func (w *Watcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	return filepath.WalkDir(path, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return w.fsw.Add(p)
		}
		return nil
	})
}

// Changes delivers batches of changed paths, sorted and deduplicated.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Run processes filesystem events until the context is cancelled or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	var (
		pending = make(map[string]bool)
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.track(ev) {
				continue
			}
			pending[ev.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-fire:
			batch := make([]string, 0, len(pending))
			for path := range pending {
				batch = append(batch, path)
			}
			sort.Strings(batch)
			pending = make(map[string]bool)
			timer = nil
			fire = nil

			select {
			case w.changes <- batch:
			default:
				w.log.Warn("change batch dropped, reload already queued")
			}
		}
	}
}

// track decides whether an event is worth a reload and keeps the watch
// set in sync when directories appear.
func (w *Watcher) track(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				w.log.Warn("watching new directory failed", "path", ev.Name, "error", err)
			}
			// A new plugin directory is itself a change.
			return true
		}
	}
	switch filepath.Ext(ev.Name) {
	case ".ts", ".js":
		return true
	}
	return false
}

// Close stops the watcher. Run returns shortly after.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
