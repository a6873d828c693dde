package flavor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/polisai/polis-flavor/pkg/domain"
)

const reloadDebounce = 100 * time.Millisecond

// WatchedResource serves a string resource from a file that is reloaded when
// it changes on disk. Lookups read the last successfully loaded table and do
// no I/O.
type WatchedResource struct {
	path        string
	name        string
	source      string
	logger      *slog.Logger
	mu          sync.RWMutex
	table       Resources
	loadErr     error
	subscribers []chan string
	closed      bool
	watcher     *fsnotify.Watcher
	cancel      context.CancelFunc
	done        chan struct{}
}

var _ Provider = (*WatchedResource)(nil)

// NewWatchedResource loads path and starts watching its directory. A file
// that does not exist yet is not an error: lookups report an absent signal
// until it appears.
func NewWatchedResource(path, name string, logger *slog.Logger) (*WatchedResource, error) {
	if name == "" {
		name = DefaultResourceName
	}
	if logger == nil {
		logger = slog.Default()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &WatchedResource{
		path:    absPath,
		name:    name,
		source:  "watched:" + filepath.Base(absPath),
		logger:  logger,
		watcher: watcher,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if err := w.load(); err != nil {
		logger.Warn("Initial resource load failed", "path", absPath, "error", err)
	}

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		cancel()
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	go w.watchLoop(ctx)

	return w, nil
}

// Name implements Provider.
func (w *WatchedResource) Name() string { return w.source }

// Lookup implements Provider.
func (w *WatchedResource) Lookup(context.Context) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.table == nil {
		return "", domain.Absent(w.source, w.loadErr)
	}
	return w.table.Lookup(w.source, w.name)
}

// Subscribe returns a channel that receives the raw resource value after
// every successful reload. Slow consumers miss intermediate values. The
// channel is closed by Close.
func (w *WatchedResource) Subscribe() <-chan string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan string, 1)
	if w.closed {
		close(ch)
		return ch
	}
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Close stops the watcher and closes subscriber channels.
func (w *WatchedResource) Close() error {
	w.cancel()
	err := w.watcher.Close()
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		for _, ch := range w.subscribers {
			close(ch)
		}
		w.subscribers = nil
	}
	return err
}

func (w *WatchedResource) watchLoop(ctx context.Context) {
	defer close(w.done)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(reloadDebounce, func() {
					if ctx.Err() != nil {
						return
					}
					if err := w.load(); err != nil {
						w.logger.Warn("Resource reload failed", "path", w.path, "error", err)
						return
					}
					w.logger.Info("Resource reloaded", "path", w.path)
				})
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Resource watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *WatchedResource) load() error {
	table, err := LoadResources(w.path)
	if err != nil {
		w.mu.Lock()
		defer w.mu.Unlock()
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// A removed file is an absent signal, same as Resource.
			w.table = nil
			w.loadErr = err
		case w.table == nil:
			w.loadErr = err
		default:
			// Keep serving the last good table.
		}
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.table = table
	w.loadErr = nil
	if w.closed {
		return nil
	}
	value := table[w.name]
	for _, ch := range w.subscribers {
		select {
		case ch <- value:
		default:
		}
	}
	return nil
}
