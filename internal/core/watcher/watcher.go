package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"scopebind/internal/shared/observability"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// relevantOps are the operations that can change a document's contents.
const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher reports debounced changes to files below a set of directories. Include
// patterns match file base names; an empty include list accepts every file.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	filter    filter
	onChange  func([]string)

	callbackMu sync.Mutex

	mu       sync.Mutex
	debounce time.Duration
	pending  map[string]fsnotify.Op
	timer    *time.Timer
	closed   bool
}

type filter struct {
	include     []glob.Glob
	excludeDirs []glob.Glob
}

func (f filter) skipDir(path string) bool {
	return matchBase(f.excludeDirs, path)
}

func (f filter) skipFile(path string) bool {
	return len(f.include) > 0 && !matchBase(f.include, path)
}

func matchBase(globs []glob.Glob, path string) bool {
	base := filepath.Base(path)
	for _, g := range globs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func NewWatcher(debounce time.Duration, include, excludeDirs []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	var f filter
	var err error
	if f.include, err = compileAll(include); err != nil {
		return nil, err
	}
	if f.excludeDirs, err = compileAll(excludeDirs); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		filter:    f,
		onChange:  onChange,
		debounce:  debounce,
		pending:   make(map[string]fsnotify.Op),
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// SetDebounce changes the quiet period for batches scheduled from now on.
func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = debounce
}

// Watch adds every directory below paths and starts delivering events.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.addTree(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.filter.skipDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.filter.skipDir(event.Name) {
				return
			}
			if err := w.addTree(event.Name); err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
				return
			}
			w.enqueueExisting(event.Name)
			return
		}
	}
	if event.Op&relevantOps == 0 || w.filter.skipFile(event.Name) {
		return
	}
	w.schedule(event.Name, event.Op)
}

func (w *Watcher) schedule(path string, op fsnotify.Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	w.pending[path] |= op
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush hands the collected paths to the callback in sorted order. Callbacks
// never overlap.
func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsWatcher.Close()
}

// enqueueExisting schedules files that landed in a directory before it was
// watched.
func (w *Watcher) enqueueExisting(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || w.filter.skipFile(path) {
			return nil
		}
		w.schedule(path, fsnotify.Create)
		return nil
	})
}
