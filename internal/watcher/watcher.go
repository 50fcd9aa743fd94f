// Package watcher monitors a drop directory for carrier images and emits an
// event once a file has stopped changing, so batch mode never processes a
// half-written image.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event represents a carrier file that is ready for processing.
type Event struct {
	Path      string
	Size      int64
	Timestamp time.Time
}

// Watcher monitors a directory for incoming carrier images.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	patterns  []string
	debounce  time.Duration

	// State tracking: path -> last modification time
	state   map[string]time.Time
	stateMu sync.RWMutex

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher over dir. Files must match one of the glob patterns
// (matched against the base name) and be unchanged for the debounce window
// before an event fires.
func New(dir string, patterns []string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		dir:       dir,
		patterns:  patterns,
		debounce:  debounce,
		state:     make(map[string]time.Time),
		events:    make(chan Event, 100),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of ready-file events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins watching the directory. Files already present are picked up
// as if they had just arrived.
func (w *Watcher) Start() error {
	absDir, err := filepath.Abs(w.dir)
	if err != nil {
		return err
	}
	w.dir = absDir

	if err := w.fsWatcher.Add(absDir); err != nil {
		return err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(absDir, entry.Name())
		if w.matches(path) {
			w.stateMu.Lock()
			w.state[path] = now
			w.stateMu.Unlock()
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()

	return nil
}

// Stop gracefully shuts down the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

// matches reports whether the base name matches any include pattern.
// No patterns means everything matches.
func (w *Watcher) matches(path string) bool {
	if len(w.patterns) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, pat := range w.patterns {
		if ok, err := filepath.Match(pat, base); err == nil && ok {
			return true
		}
	}
	return false
}

// eventLoop handles fsnotify events.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}

			w.stateMu.Lock()
			w.state[event.Name] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// debounceLoop periodically flushes files that have settled.
func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			w.flushStable(now)
		}
	}
}

// flushStable emits events for files unchanged since the debounce window.
func (w *Watcher) flushStable(now time.Time) {
	threshold := now.Add(-w.debounce)

	type stableFile struct {
		path    string
		lastMod time.Time
	}
	var stable []stableFile
	w.stateMu.RLock()
	for path, lastMod := range w.state {
		if lastMod.Before(threshold) {
			stable = append(stable, stableFile{path: path, lastMod: lastMod})
		}
	}
	w.stateMu.RUnlock()

	if len(stable) == 0 {
		return
	}

	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	for _, sf := range stable {
		// Re-check under the write lock: the file may have changed while
		// we scanned.
		if cur, exists := w.state[sf.path]; !exists || cur != sf.lastMod {
			continue
		}

		info, err := os.Stat(sf.path)
		if err != nil {
			// Deleted before it settled.
			delete(w.state, sf.path)
			continue
		}

		select {
		case w.events <- Event{Path: sf.path, Size: info.Size(), Timestamp: now}:
			delete(w.state, sf.path)
		default:
			// Channel full, try again next tick.
		}
	}
}

// PendingFiles returns the number of files waiting to settle.
func (w *Watcher) PendingFiles() int {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return len(w.state)
}
