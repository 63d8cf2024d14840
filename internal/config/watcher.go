package config

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads Config whenever its file changes on disk, debouncing
// rapid-fire events the way editors produce them (write + rename + chmod
// for a single logical save). Grounded on the teacher's
// internal/indexer/watcher.go FileWatcher debounce pattern.
type Watcher struct {
	manager      *Manager
	watcher      *fsnotify.Watcher
	onReload     func(*Config)
	debounce     time.Duration
	stop         chan struct{}
}

// NewWatcher creates a Watcher for manager's config file.
func NewWatcher(manager *Manager, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(manager.GetPath())
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		manager:  manager,
		watcher:  fw,
		onReload: onReload,
		debounce: 300 * time.Millisecond,
		stop:     make(chan struct{}),
	}, nil
}

// Start runs the watch loop in a goroutine until Stop is called.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	target := filepath.Clean(w.manager.GetPath())

	reload := func() {
		cfg, err := w.manager.Load()
		if err != nil {
			log.Printf("config watcher: reload failed: %v", err)
			return
		}
		if w.onReload != nil {
			w.onReload(cfg)
		}
	}

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher: error: %v", err)
		case <-w.stop:
			return
		}
	}
}

// Stop ends the watch loop and releases the underlying fsnotify handle.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}
