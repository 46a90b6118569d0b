package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xmhha/dirwatcher/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

// watcher implements the Watcher interface using fsnotify.
type watcher struct {
	fsw     *fsnotify.Watcher
	handler Handler
	logger  logger.Logger
	config  Config

	mu       sync.Mutex
	started  bool
	stopped  bool
	closed   bool
	stopChan chan struct{}
	done     chan struct{}

	recursive bool

	// Known directories: every watched directory, plus the root's
	// immediate subdirectories in non-recursive mode. Filled by Start
	// before the event goroutine runs and only touched by that goroutine
	// afterwards.
	dirs map[string]struct{}

	// Directories removed from dirs. A vanished directory can be
	// reported more than once (by its parent and by its own watch).
	gone map[string]struct{}

	overflows atomic.Uint64
}

// New creates a new filesystem watcher delivering events to handler.
//
// Parameters:
//   - cfg: Watcher configuration
//   - handler: Receives events on the watcher goroutine
//   - log: Logger instance
//
// Returns:
//   - Configured Watcher
//   - Error if the OS notification handle cannot be created
func New(cfg Config, handler Handler, log logger.Logger) (Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher: nil handler")
	}

	var (
		fsw *fsnotify.Watcher
		err error
	)
	if cfg.Buffer > 0 {
		fsw, err = fsnotify.NewBufferedWatcher(cfg.Buffer)
	} else {
		fsw, err = fsnotify.NewWatcher()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &watcher{
		fsw:      fsw,
		handler:  handler,
		logger:   log,
		config:   cfg,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		dirs:     make(map[string]struct{}),
		gone:     make(map[string]struct{}),
	}, nil
}

// Start implements Watcher.Start.
func (w *watcher) Start(root string, recursive bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.stopped {
		return ErrWatcherClosed
	}
	if w.started {
		return ErrAlreadyStarted
	}

	if err := CheckRoot(root); err != nil {
		return err
	}

	w.recursive = recursive

	var err error
	if recursive {
		err = w.addPathRecursive(root)
	} else {
		err = w.addPath(root)
		if err == nil {
			w.trackChildDirs(root)
		}
	}
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, root)
		}
		return fmt.Errorf("failed to add path %s: %w", root, err)
	}

	w.started = true

	w.logger.Info("watcher started",
		"path", root,
		"recursive", recursive,
		"directories", len(w.dirs))

	go w.processEvents()

	return nil
}

// Stop implements Watcher.Stop.
func (w *watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if !w.started {
		return ErrNotStarted
	}
	if w.stopped {
		return nil
	}

	close(w.stopChan)
	w.stopped = true

	w.logger.Info("watcher stop requested")
	return nil
}

// Join implements Watcher.Join.
func (w *watcher) Join(timeout time.Duration) error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	if !started {
		return nil
	}

	if timeout <= 0 {
		<-w.done
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.done:
		return nil
	case <-timer.C:
		return ErrJoinTimeout
	}
}

// Close implements Watcher.Close.
func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}

	w.closed = true

	if w.started && !w.stopped {
		close(w.stopChan)
		w.stopped = true
	}
	w.mu.Unlock()

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("failed to close fsnotify watcher", "error", err)
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Info("watcher closed")
	return nil
}

// Overflows implements Watcher.Overflows.
func (w *watcher) Overflows() uint64 {
	return w.overflows.Load()
}

// processEvents delivers fsnotify events until stopped.
func (w *watcher) processEvents() {
	defer close(w.done)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("event processing stopped", "reason", "stop signal")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.logger.Warn("fsnotify events channel closed")
				return
			}

			// Both channels may be ready at once; a pending stop wins.
			if w.stopRequested() {
				w.logger.Info("event processing stopped", "reason", "stop signal")
				return
			}

			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.logger.Warn("fsnotify errors channel closed")
				return
			}

			w.handleError(err)
		}
	}
}

func (w *watcher) stopRequested() bool {
	select {
	case <-w.stopChan:
		return true
	default:
		return false
	}
}

// handleEvent normalizes a single fsnotify event and hands it on.
func (w *watcher) handleEvent(event fsnotify.Event) {
	// Self events for a watch that was already removed carry no name.
	if event.Name == "" {
		w.logger.Debug("dropping event without path", "op", event.Op)
		return
	}

	op, ok := convertOp(event.Op)
	if !ok {
		w.logger.Debug("unknown fsnotify operation",
			"op", event.Op,
			"path", event.Name)
		return
	}

	isDir := w.isDir(event.Name, op)

	if !isDir {
		w.emit(event.Name, op, false)
		return
	}

	switch op {
	case OpCreated:
		if !w.recursive {
			w.dirs[event.Name] = struct{}{}
			break
		}
		if err := w.addPathRecursive(event.Name); err != nil {
			w.logger.Warn("failed to watch new directory",
				"path", event.Name,
				"error", err)
		}
		w.emit(event.Name, op, true)
		w.emitContents(event.Name)
		return
	case OpDeleted, OpMoved:
		w.forgetDir(event.Name)
	}

	w.emit(event.Name, op, true)
}

func (w *watcher) emit(path string, op Op, isDir bool) {
	w.handler.HandleEvent(Event{
		Path:      path,
		Op:        op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

// emitContents reports everything already inside a directory that
// appeared in the tree as created. Entries written before the watch was
// in place produce no notification of their own; entries written after
// may be reported twice.
func (w *watcher) emitContents(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip but continue walking.
		}
		if w.stopRequested() {
			return filepath.SkipAll
		}
		if path == dir {
			return nil
		}

		w.emit(path, OpCreated, d.IsDir())
		return nil
	})
	if err != nil {
		w.logger.Debug("failed to list new directory", "path", dir, "error", err)
	}
}

// convertOp maps an fsnotify op to an Op. Attribute changes count as
// modifications.
func convertOp(op fsnotify.Op) (Op, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreated, true
	case op.Has(fsnotify.Write):
		return OpModified, true
	case op.Has(fsnotify.Remove):
		return OpDeleted, true
	case op.Has(fsnotify.Rename):
		return OpMoved, true
	case op.Has(fsnotify.Chmod):
		return OpModified, true
	default:
		return 0, false
	}
}

// isDir reports whether path is a directory. Entries that are gone are
// looked up in the known and the forgotten directories.
func (w *watcher) isDir(path string, op Op) bool {
	if op != OpDeleted && op != OpMoved {
		if info, err := os.Lstat(path); err == nil {
			// The path exists again; whatever vanished there before is
			// no longer relevant.
			delete(w.gone, path)
			return info.IsDir()
		}
	}

	if _, ok := w.dirs[path]; ok {
		return true
	}
	_, ok := w.gone[path]
	return ok
}

// forgetDir drops a vanished directory and its descendants from the
// watch set.
func (w *watcher) forgetDir(path string) {
	prefix := path + string(filepath.Separator)

	for dir := range w.dirs {
		if dir != path && !strings.HasPrefix(dir, prefix) {
			continue
		}

		delete(w.dirs, dir)
		w.gone[dir] = struct{}{}

		// Removed directories drop their watch on their own; moved ones
		// keep it under the old name.
		if err := w.fsw.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			w.logger.Debug("failed to remove watch", "path", dir, "error", err)
		}
	}
}

// handleError logs fsnotify errors. Queue overflows are counted; the
// dropped events are not recovered.
func (w *watcher) handleError(err error) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		n := w.overflows.Add(1)
		w.logger.Warn("event queue overflow, events dropped",
			"overflows", n)
		return
	}

	w.logger.Error("fsnotify error", "error", err)
}

// addPath adds a single path to the watcher.
func (w *watcher) addPath(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return err
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		w.dirs[path] = struct{}{}
	}

	w.logger.Debug("added watch path", "path", path)
	return nil
}

// trackChildDirs records the immediate subdirectories of root without
// watching them, so their removal is still reported as a directory.
func (w *watcher) trackChildDirs(root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		w.logger.Warn("failed to list watch path", "path", root, "error", err)
		return
	}

	for _, e := range entries {
		if e.IsDir() {
			w.dirs[filepath.Join(root, e.Name())] = struct{}{}
		}
	}
}

// addPathRecursive adds a path and all subdirectories to the watcher.
func (w *watcher) addPathRecursive(path string) error {
	if err := w.addPath(path); err != nil {
		return err
	}

	return filepath.WalkDir(path, func(subPath string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("error walking path",
				"path", subPath,
				"error", err)
			return nil // Skip but continue walking.
		}

		if !d.IsDir() || subPath == path {
			return nil
		}

		if addErr := w.addPath(subPath); addErr != nil {
			w.logger.Warn("failed to add subdirectory",
				"path", subPath,
				"error", addErr)
			return nil // Skip but continue walking.
		}

		return nil
	})
}

// CheckRoot verifies that root exists and is readable, returning
// ErrPathNotFound or ErrPermissionDenied otherwise.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("%w: %s", ErrPathNotFound, root)
		case errors.Is(err, fs.ErrPermission):
			return fmt.Errorf("%w: %s", ErrPermissionDenied, root)
		default:
			return fmt.Errorf("failed to stat path %s: %w", root, err)
		}
	}

	if !info.IsDir() {
		return nil
	}

	f, err := os.Open(root) // nolint:gosec
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, root)
		}
		return fmt.Errorf("failed to open path %s: %w", root, err)
	}
	return f.Close()
}
