// Package watcher provides filesystem subtree observation.
//
// It wraps fsnotify, adds recursive watching, and normalizes raw
// notifications into created/modified/deleted/moved events that are
// delivered to a Handler on the watcher's own goroutine.
//
// A rename inside the tree is reported as two events: moved for the old
// path and created for the new one. A directory that appears in a
// recursive watch is followed by created events for everything already
// inside it.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{}, watcher.HandlerFunc(func(ev watcher.Event) {
//	    fmt.Printf("%s %s\n", ev.Op, ev.Path)
//	}), logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.Start("/srv/inbox", true); err != nil {
//	    log.Fatal(err)
//	}
//	...
//	_ = w.Stop()
//	_ = w.Join(5 * time.Second)
package watcher

import (
	"time"
)

// Op describes a file operation type.
type Op uint32

// File operation types.
const (
	OpCreated  Op = 1 << iota // Entry created
	OpModified                // Entry contents or attributes changed
	OpDeleted                 // Entry removed
	OpMoved                   // Entry renamed or moved away
)

// String returns the event type name. It doubles as the topic suffix.
func (op Op) String() string {
	switch op {
	case OpCreated:
		return "created"
	case OpModified:
		return "modified"
	case OpDeleted:
		return "deleted"
	case OpMoved:
		return "moved"
	default:
		return "unknown"
	}
}

// Event represents a filesystem change.
type Event struct {
	// Path is the affected entry as reported by the OS, rooted at the
	// watch path. For moves it is the source path.
	Path string

	// Op is the operation that triggered the event.
	Op Op

	// IsDir reports whether the entry is a directory.
	IsDir bool

	// Timestamp is when the event was observed.
	Timestamp time.Time
}

// Handler receives events on the watcher goroutine.
type Handler interface {
	HandleEvent(event Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(event Event)

// HandleEvent calls f(event).
func (f HandlerFunc) HandleEvent(event Event) {
	f(event)
}

// Watcher observes a directory subtree.
type Watcher interface {
	// Start begins observing root, and its descendants when recursive is
	// set. It returns once the watches are in place; events are delivered
	// on a separate goroutine.
	Start(root string, recursive bool) error

	// Stop asks the event goroutine to exit after the event it is
	// currently delivering. It does not wait.
	Stop() error

	// Join blocks until the event goroutine has exited. A timeout of zero
	// waits indefinitely. After Join returns nil no further handler calls
	// will be made.
	Join(timeout time.Duration) error

	// Close stops the watcher if needed and releases the OS resources.
	Close() error

	// Overflows returns how many times the kernel event queue overflowed.
	Overflows() uint64
}

// Config contains watcher configuration.
type Config struct {
	// Buffer is the size of the underlying notification buffer.
	// Zero uses the fsnotify default.
	Buffer uint
}
