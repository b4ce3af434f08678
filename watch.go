package flowline

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads a config file when it changes and passes each new
// Config to registered listeners. Configs that fail to parse or validate are
// logged and ignored; the last good one stays current.
//
// ConfigWatcher is safe for concurrent use.
type ConfigWatcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu        sync.RWMutex
	current   Config
	listeners []listenerFunc
	nextID    uint64

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

type listenerFunc struct {
	id uint64
	fn func(Config)
}

// WatchConfig loads path and starts watching it. The file must load
// successfully the first time.
func WatchConfig(path string) (*ConfigWatcher, error) {
	path = filepath.Clean(path)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("flowline: watch config: %w", err)
	}
	// Watch the directory: editors often replace the file by rename, which
	// drops a watch placed on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("flowline: watch config: %w", err)
	}

	w := &ConfigWatcher{
		path:    path,
		watcher: fw,
		current: cfg,
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *ConfigWatcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			Logger().Warn("flowline: config watcher error", "path", w.path, "err", err)
		}
	}
}

func (w *ConfigWatcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		Logger().Warn("flowline: config reload failed", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if cfg == w.current {
		w.mu.Unlock()
		return
	}
	w.current = cfg
	fns := make([]func(Config), len(w.listeners))
	for i, l := range w.listeners {
		fns[i] = l.fn
	}
	w.mu.Unlock()

	Logger().Info("flowline: config reloaded", "path", w.path)
	for _, fn := range fns {
		fn(cfg)
	}
}

// Config returns the last successfully loaded config.
func (w *ConfigWatcher) Config() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers fn for every reloaded config that differs from the
// previous one, and returns a function that unregisters it.
func (w *ConfigWatcher) OnChange(fn func(Config)) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	id := w.nextID
	w.listeners = append(w.listeners, listenerFunc{id: id, fn: fn})

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, l := range w.listeners {
			if l.id == id {
				w.listeners = append(w.listeners[:i:i], w.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close stops watching. Close is safe to call multiple times.
func (w *ConfigWatcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.watcher.Close()
		w.wg.Wait()
	})
	return w.closeErr
}
