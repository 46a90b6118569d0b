package lifecycle

import (
	"context"
	"time"

	"github.com/0xmhha/dirwatcher/pkg/bridge"
)

// Process exit codes returned by Run.
const (
	// ExitOK is a normal shutdown after a signal.
	ExitOK = 0

	// ExitForced is an interrupt received while shutdown was already in
	// progress.
	ExitForced = 1

	// ExitStartupFailure covers an unusable watch path, an unreachable
	// broker and a watcher that failed to start.
	ExitStartupFailure = 2
)

// State is the controller's running state.
type State int32

const (
	// StateRunning is the state until the first shutdown request.
	StateRunning State = iota
	// StateStopping is held while shutdown runs.
	StateStopping
	// StateForceExit follows an interrupt during shutdown.
	StateForceExit
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateForceExit:
		return "force-exit"
	default:
		return "unknown"
	}
}

// Broker is the connection driven by the controller.
type Broker interface {
	// Connect performs the initial handshake.
	Connect() error

	// Loop runs one short-blocking iteration, reconnecting if the link
	// dropped. It returns early when ctx is cancelled.
	Loop(ctx context.Context) error

	// Disconnect closes the connection gracefully.
	Disconnect()
}

// FileWatcher is the filesystem observer driven by the controller.
type FileWatcher interface {
	Start(root string, recursive bool) error
	Stop() error
	Join(timeout time.Duration) error
	Close() error
}

// StatsSource reports bridge counters at shutdown.
type StatsSource interface {
	Stats() bridge.Stats
}

// Config contains controller configuration.
type Config struct {
	// WatchPath is the root of the observed tree.
	WatchPath string

	// Recursive enables watching subdirectories.
	Recursive bool

	// JoinTimeout bounds the wait for the watcher goroutine. Zero waits
	// forever.
	JoinTimeout time.Duration
}
