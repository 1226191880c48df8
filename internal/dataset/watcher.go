package dataset

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a directory for new or changed dataset files so a
// running monitor can pick them up without a restart.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	debounce  time.Duration

	// pending holds paths seen recently, waiting out the debounce window.
	pending   map[string]time.Time
	pendingMu sync.Mutex

	events chan string
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watcher over the given directory. Changed dataset
// files are reported after they have been stable for the debounce interval.
func NewWatcher(dir string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		dir:       dir,
		debounce:  debounce,
		pending:   make(map[string]time.Time),
		events:    make(chan string, 16),
		errors:    make(chan error, 4),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of changed dataset file paths.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins watching the dataset directory.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.watchLoop()
	go w.flushLoop()
	return nil
}

// Stop shuts the watcher down and waits for its loops to exit.
func (w *Watcher) Stop() error {
	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !isDatasetFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.pendingMu.Lock()
			w.pending[ev.Name] = time.Now()
			w.pendingMu.Unlock()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		case <-w.done:
			return
		}
	}
}

// flushLoop emits paths whose last write settled past the debounce window.
func (w *Watcher) flushLoop() {
	defer w.wg.Done()

	interval := w.debounce / 2
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			w.pendingMu.Lock()
			for path, last := range w.pending {
				if now.Sub(last) >= w.debounce {
					delete(w.pending, path)
					select {
					case w.events <- path:
					default:
					}
				}
			}
			w.pendingMu.Unlock()
		case <-w.done:
			return
		}
	}
}

func isDatasetFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
