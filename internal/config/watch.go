package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces bursts of filesystem events (editors
// often write-then-rename) into a single reload.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watcher reloads a config file on change and invokes onReload with the
// freshly loaded Config. A failed reload is reported via onError and
// leaves the previously loaded config in place.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func(*Config)
	onError  func(error)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher constructs a Watcher for path. debounce<=0 uses
// DefaultWatchDebounce.
func NewWatcher(path string, debounce time.Duration, onReload func(*Config), onError func(error)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	return &Watcher{path: path, debounce: debounce, onReload: onReload, onError: onError}
}

// Start begins watching until ctx is canceled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watcher != nil {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := fw.Add(w.path); err != nil {
		fw.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = fw
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(watchCtx)
	return nil
}

// Close stops the watcher and blocks until its goroutine exits.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	fw := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	if fw != nil {
		_ = fw.Close()
	}
	w.wg.Wait()
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	w.mu.Lock()
	fw := w.watcher
	w.mu.Unlock()
	if fw == nil {
		return
	}

	var mu sync.Mutex
	var timer *time.Timer
	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			cfg, err := Load(w.path)
			if err != nil {
				if w.onError != nil {
					w.onError(err)
				}
				return
			}
			if w.onReload != nil {
				w.onReload(cfg)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}
