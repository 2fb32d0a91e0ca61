package indexing

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/pathfinder/internal/config"
	"github.com/standardbeagle/pathfinder/internal/logging"
)

// Watcher applies filesystem changes beneath an indexed root as incremental
// mutations, debounced so editors that write in bursts produce one batch.
type Watcher struct {
	fsw    *fsnotify.Watcher
	cfg    *config.Config
	target Target
	log    *logging.Logger

	mu      sync.Mutex
	pending map[string]fsnotify.Op

	done chan struct{}
	wg   sync.WaitGroup
}

func NewWatcher(cfg *config.Config, target Target, log *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:     fsw,
		cfg:     cfg.Clone(),
		target:  target,
		log:     log,
		pending: make(map[string]fsnotify.Op),
		done:    make(chan struct{}),
	}, nil
}

// Start adds watches for root and every non-excluded directory below it,
// then begins processing events.
func (w *Watcher) Start(root string) error {
	if err := w.addWatches(root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.loop()
	w.log.Infof("watching %s for changes", root)
	return nil
}

// Stop closes the watcher and joins its goroutine. Pending events are
// flushed before returning.
func (w *Watcher) Stop() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	w.flush()
	return err
}

func (w *Watcher) addWatches(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.log.Warnf("watch skip %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root {
			if !w.cfg.IndexHiddenFiles && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if w.excludedPath(path, name) {
				return filepath.SkipDir
			}
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warnf("cannot watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	debounce := w.cfg.WatchDebounce
	if debounce <= 0 {
		debounce = config.DefaultWatchDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.record(event)
			timer.Reset(debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnf("watch error: %v", err)
		case <-timer.C:
			w.flush()
		}
	}
}

func (w *Watcher) record(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !w.cfg.IndexHiddenFiles && strings.HasPrefix(name, ".") {
		return
	}
	if w.excludedPath(event.Name, name) {
		return
	}

	// New directories get watched and their contents queued as creates.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addWatches(event.Name); err != nil {
				w.log.Warnf("cannot watch new directory %s: %v", event.Name, err)
			}
			w.queueDirContents(event.Name)
			return
		}
	}

	w.mu.Lock()
	w.pending[event.Name] |= event.Op
	w.mu.Unlock()
}

func (w *Watcher) queueDirContents(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := d.Name()
		if !w.cfg.IndexHiddenFiles && strings.HasPrefix(name, ".") {
			return nil
		}
		if w.excludedPath(path, name) {
			return nil
		}
		w.mu.Lock()
		w.pending[path] |= fsnotify.Create
		w.mu.Unlock()
		return nil
	})
}

// flush turns accumulated events into one batch update. A path both created
// and removed within the window resolves by its current on-disk presence.
func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	var adds, removes []string
	for path, op := range pending {
		switch {
		case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename):
			if _, err := os.Stat(path); err == nil {
				adds = append(adds, path)
			} else {
				removes = append(removes, path)
			}
		case op.Has(fsnotify.Create):
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				adds = append(adds, path)
			}
		}
	}
	if len(adds) == 0 && len(removes) == 0 {
		return
	}
	if err := w.target.BatchUpdate(adds, removes); err != nil {
		w.log.Errorf("watch batch update failed: %v", err)
		return
	}
	w.log.Infof("watch applied %d adds, %d removes", len(adds), len(removes))
}

func (w *Watcher) excludedPath(path, name string) bool {
	return matchesExclusion(w.cfg.ExcludedPatterns, path, name)
}
