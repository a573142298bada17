package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to a single config file. Events are debounced so
// one save results in one callback, even when an editor writes the file in
// several operations or replaces it via rename.
type Watcher struct {
	path     string
	fs       *fsnotify.Watcher
	onChange func()
	debounce time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher watches path and invokes onChange from a background goroutine
// after each (debounced) filesystem change.
func NewWatcher(path string, onChange func()) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the parent directory: rename-replace saves drop the watch when
	// the file itself is watched.
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	w := &Watcher{
		path:     abs,
		fs:       fs,
		onChange: onChange,
		debounce: 200 * time.Millisecond,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			w.onChange()
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher. Idempotent.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() { close(w.done) })
	return w.fs.Close()
}

// Manager couples the loaded document with its file watcher. Reload failures
// keep the previous document live.
type Manager struct {
	path    string
	mu      sync.RWMutex
	cfg     *Config
	watcher *Watcher
}

// NewManager loads path and starts watching it; onChange fires once per
// filesystem change to the document.
func NewManager(path string, onChange func()) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWatcher(path, onChange)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, cfg: cfg, watcher: w}, nil
}

// Current returns the live document.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Reload re-reads the document. On failure the previous document stays live
// and the error is returned for the operator.
func (m *Manager) Reload() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return cfg, nil
}

// Close stops the file watcher.
func (m *Manager) Close() error {
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
