// Package workspace reports which files in the working directory change
// while a session runs, so the implementer's edits can be listed afterwards.
package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mark3labs/dualai/internal/logger"
)

// eventBuffer is the number of events fsnotify queues before blocking.
const eventBuffer = 256

// Watcher records created, written and renamed files under a directory.
// Paths matched by the directory's .gitignore or by the excluded
// directories are skipped.
type Watcher struct {
	fsw     *fsnotify.Watcher
	root    string
	ignore  *ignoreList
	mu      sync.Mutex
	changed map[string]struct{}
	done    chan struct{}
	exited  chan struct{}
	once    sync.Once
}

// New creates a watcher for root. exclude lists directories, absolute or
// relative to root, that are never reported. ".git" is always excluded.
func New(root string, exclude ...string) (*Watcher, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewBufferedWatcher(eventBuffer)
	if err != nil {
		return nil, err
	}

	ignore := loadIgnoreList(root)
	ignore.excludeDir(".git")
	for _, dir := range exclude {
		if filepath.IsAbs(dir) {
			rel, err := filepath.Rel(root, dir)
			if err != nil {
				continue
			}
			dir = rel
		}
		ignore.excludeDir(dir)
	}

	return &Watcher{
		fsw:     fsw,
		root:    root,
		ignore:  ignore,
		changed: make(map[string]struct{}),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}, nil
}

// Start adds watches for every directory under root and begins recording.
func (w *Watcher) Start() error {
	if err := w.watchTree(w.root); err != nil {
		_ = w.fsw.Close()
		return err
	}
	go w.loop()
	logger.Debug("Watching %s for changes (%d ignore rules)", w.root, len(w.ignore.rules))
	return nil
}

// Stop ends recording. Events already queued are recorded before it
// returns. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		<-w.exited
		err = w.fsw.Close()
	})
	return err
}

// Changed returns the sorted relative paths recorded so far.
func (w *Watcher) Changed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.changed))
	for p := range w.changed {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Reset forgets the recorded paths.
func (w *Watcher) Reset() {
	w.mu.Lock()
	w.changed = make(map[string]struct{})
	w.mu.Unlock()
}

func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, _ := filepath.Rel(w.root, p); rel != "." && w.ignore.Ignored(rel, true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			logger.Warn("Cannot watch %s: %v", p, err)
			if strings.Contains(err.Error(), "no space left on device") ||
				strings.Contains(err.Error(), "too many open files") {
				logger.Error("Watch limit reached, raise fs.inotify.max_user_watches")
				return filepath.SkipAll
			}
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.exited)
	for {
		select {
		case <-w.done:
			w.drain()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// drain handles the queued events without waiting for new ones.
func (w *Watcher) drain() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		default:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return
	}

	isDir := false
	if info, err := os.Lstat(ev.Name); err == nil {
		isDir = info.IsDir()
	}
	if w.ignore.Ignored(rel, isDir) {
		return
	}

	// New directories are watched, not reported.
	if isDir {
		if ev.Has(fsnotify.Create) {
			if err := w.watchTree(ev.Name); err != nil {
				logger.Warn("Cannot watch new directory %s: %v", ev.Name, err)
			}
		}
		return
	}

	w.mu.Lock()
	w.changed[filepath.ToSlash(rel)] = struct{}{}
	w.mu.Unlock()
}
