package symbols

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceWindow = 100 * time.Millisecond

// CacheWatcher watches one dump's private symbol-cache directory and calls
// Invalidate when a debounced Write|Create|Remove event fires, so PDBs
// dropped into the cache directory out-of-band are picked up without an
// explicit "symbols clear_cache" call. Debounce window and goroutine shape
// follow the index package's file watcher: a single events-drain goroutine,
// a debounce-ticker goroutine, and a stopCh-gated shutdown.
type CacheWatcher struct {
	sessionID string
	dir       string
	invalidate InvalidateFunc

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}

	pendingMu sync.Mutex
	pending   time.Time
	dirty     bool
}

// NewCacheWatcher constructs a watcher for dir, scoped to sessionID, calling
// invalidate on a debounced change.
func NewCacheWatcher(sessionID, dir string, invalidate InvalidateFunc) (*CacheWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create symbol cache watcher: %w", err)
	}
	return &CacheWatcher{
		sessionID:  sessionID,
		dir:        dir,
		invalidate: invalidate,
		watcher:    fsWatcher,
		stopCh:     make(chan struct{}),
	}, nil
}

// Start begins watching. Idempotent.
func (w *CacheWatcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("ensure symbol cache dir: %w", err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch symbol cache dir: %w", err)
	}

	go w.processEvents()
	go w.processDebounced()
	return nil
}

// Stop stops the watcher. Safe to call once per Start.
func (w *CacheWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)
	return w.watcher.Close()
}

func (w *CacheWatcher) processEvents() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			w.pendingMu.Lock()
			w.pending = time.Now()
			w.dirty = true
			w.pendingMu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "symbol cache watcher error: %v\n", err)
		}
	}
}

func (w *CacheWatcher) processDebounced() {
	ticker := time.NewTicker(debounceWindow)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.maybeFire()
		}
	}
}

func (w *CacheWatcher) maybeFire() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if !w.dirty {
		return
	}
	if time.Since(w.pending) < debounceWindow {
		return
	}
	w.dirty = false
	if w.invalidate != nil {
		w.invalidate(w.sessionID)
	}
}
