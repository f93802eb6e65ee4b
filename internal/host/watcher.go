package host

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the stat interval when fsnotify is unavailable.
const DefaultPollInterval = time.Second

// Watcher signals when the state file changes. It watches the parent
// directory so editors that save by rename are still seen, and falls back
// to polling the file's modification time when fsnotify fails.
type Watcher struct {
	path string
	// events is buffered to 1 so bursts of writes coalesce into one signal.
	events       chan struct{}
	done         chan struct{}
	wg           sync.WaitGroup
	once         sync.Once
	polling      atomic.Bool
	pollInterval time.Duration

	mu  sync.Mutex
	fsw *fsnotify.Watcher
}

// WatchOption customizes a [Watcher].
type WatchOption func(*Watcher)

// WithPollInterval sets the polling fallback interval.
func WithPollInterval(d time.Duration) WatchOption {
	return func(w *Watcher) { w.pollInterval = d }
}

// ForcePolling skips fsnotify entirely.
func ForcePolling() WatchOption {
	return func(w *Watcher) { w.polling.Store(true) }
}

// NewWatcher starts watching path. The parent directory is created if
// needed; the file itself may not exist yet.
func NewWatcher(path string, opts ...WatchOption) (*Watcher, error) {
	w := &Watcher{
		path:         filepath.Clean(path),
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating watch directory: %w", err)
	}

	if !w.polling.Load() {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			if err = fsw.Add(dir); err != nil {
				fsw.Close()
			}
		}
		if err != nil {
			slog.Info("fsnotify unavailable, polling host state", "path", w.path, "error", err)
			w.polling.Store(true)
		} else {
			w.fsw = fsw
		}
	}

	w.wg.Add(1)
	if w.polling.Load() {
		go w.poll()
	} else {
		go w.watch()
	}
	return w, nil
}

// Events receives one signal per batch of changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Polling reports whether the watcher fell back to polling.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Close stops the watcher and waits for its goroutine. It is idempotent.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.fsw != nil {
			if cErr := w.fsw.Close(); cErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", cErr)
			}
			w.fsw = nil
		}
		w.mu.Unlock()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) watch() {
	defer w.wg.Done()
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}

	base := filepath.Base(w.path)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.mu.Lock()
			if w.fsw != nil {
				w.fsw.Close()
				w.fsw = nil
			}
			w.mu.Unlock()
			w.polling.Store(true)
			w.wg.Add(1)
			go w.poll()
			return
		}
	}
}

func (w *Watcher) poll() {
	defer w.wg.Done()
	last := w.modTime()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if mod := w.modTime(); !mod.Equal(last) {
				last = mod
				if !mod.IsZero() {
					w.notify()
				}
			}
		}
	}
}

func (w *Watcher) modTime() time.Time {
	info, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
