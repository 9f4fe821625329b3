package cache

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"kpidash/internal"
)

// Invalidator is the part of Cache the watcher needs
type Invalidator interface {
	Invalidate(path string)
}

// DefaultDebounce is how long a file must stay quiet before it is reported
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher invalidates cache entries when their workbook is written,
// replaced or removed. It watches the parent directory because spreadsheet
// editors save by renaming a temp file over the original. Events are
// debounced: a burst of writes is reported once, after the file settles.
type FileWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	target   Invalidator
	files    map[string]string    // cleaned absolute path -> cache key
	pending  map[string]time.Time // cache key -> last event
	debounce time.Duration
	logger   *internal.Logger
	onEvent  func(path string)
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewFileWatcher creates a watcher that invalidates entries of target
func NewFileWatcher(target Invalidator) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{
		watcher:  watcher,
		target:   target,
		files:    make(map[string]string),
		pending:  make(map[string]time.Time),
		debounce: DefaultDebounce,
		logger:   internal.DefaultLogger.Named("Watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period. Call it before Start.
func (w *FileWatcher) SetDebounce(d time.Duration) {
	if d <= 0 {
		d = DefaultDebounce
	}
	w.mu.Lock()
	w.debounce = d
	w.mu.Unlock()
}

// OnEvent registers a callback run after each invalidation
func (w *FileWatcher) OnEvent(fn func(path string)) {
	w.mu.Lock()
	w.onEvent = fn
	w.mu.Unlock()
}

// Add starts watching key, the path used as cache key
func (w *FileWatcher) Add(key string) error {
	abs, err := filepath.Abs(key)
	if err != nil {
		return err
	}
	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	w.mu.Lock()
	w.files[filepath.Clean(abs)] = key
	w.mu.Unlock()
	w.logger.Info("watching %s", abs)
	return nil
}

// Start runs the event loop until ctx is done or Stop is called
func (w *FileWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.run(ctx)
}

// Stop ends the event loop and releases the watcher
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("closing watcher: %v", err)
	}
}

func (w *FileWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	w.mu.Lock()
	tick := w.debounce / 5
	w.mu.Unlock()
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error: %v", err)
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

// handleEvent marks the watched file as changed; flush reports it later
func (w *FileWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	key, ok := w.files[filepath.Clean(event.Name)]
	if !ok {
		return
	}
	w.logger.Trace("%s: %s", event.Op, event.Name)
	w.pending[key] = time.Now()
}

// flush invalidates and reports every key quiet for at least the debounce
// period
func (w *FileWatcher) flush(now time.Time) {
	w.mu.Lock()
	var settled []string
	for key, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			settled = append(settled, key)
			delete(w.pending, key)
		}
	}
	onEvent := w.onEvent
	w.mu.Unlock()

	for _, key := range settled {
		w.logger.Debug("%s changed", key)
		w.target.Invalidate(key)
		if onEvent != nil {
			onEvent(key)
		}
	}
}
