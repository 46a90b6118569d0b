package watcher

import "errors"

// Common errors returned by the watcher.
var (
	// ErrWatcherClosed is returned when Start is called on a stopped or
	// closed watcher. Watchers cannot be restarted.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrAlreadyStarted is returned when Start is called on a running watcher.
	ErrAlreadyStarted = errors.New("watcher already started")

	// ErrNotStarted is returned when Stop is called on a non-running watcher.
	ErrNotStarted = errors.New("watcher not started")

	// ErrPathNotFound is returned when the watch root does not exist.
	ErrPathNotFound = errors.New("watch path not found")

	// ErrPermissionDenied is returned when the watch root cannot be read.
	ErrPermissionDenied = errors.New("watch path permission denied")

	// ErrJoinTimeout is returned when the event goroutine does not exit
	// within the join timeout.
	ErrJoinTimeout = errors.New("timed out waiting for watcher to stop")
)
