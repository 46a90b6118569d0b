// Package lifecycle orders startup and shutdown of the bridge and turns
// SIGINT and SIGTERM into a graceful stop.
//
// The first SIGINT or SIGTERM requests shutdown. A second SIGINT while
// shutdown is in progress exits the process immediately with ExitForced.
package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/0xmhha/dirwatcher/pkg/logger"
	"github.com/0xmhha/dirwatcher/pkg/watcher"
)

// Controller runs the bridge from startup to shutdown.
type Controller struct {
	config  Config
	broker  Broker
	watcher FileWatcher
	stats   StatsSource
	logger  logger.Logger

	checkPath func(string) error
	exit      func(int)

	state    atomic.Int32
	stopOnce sync.Once
	stopChan chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithStats logs the given counters at shutdown.
func WithStats(s StatsSource) Option {
	return func(c *Controller) {
		c.stats = s
	}
}

// WithExitFunc replaces os.Exit for the forced-exit path.
func WithExitFunc(exit func(int)) Option {
	return func(c *Controller) {
		c.exit = exit
	}
}

// WithPathCheck replaces the watch path preflight.
func WithPathCheck(check func(string) error) Option {
	return func(c *Controller) {
		c.checkPath = check
	}
}

// New creates a controller.
//
// Parameters:
//   - cfg: Controller configuration
//   - b: Broker connection
//   - w: Filesystem watcher, already wired to its event handler
//   - log: Logger instance, closed when Run returns
//   - opts: Optional settings
//
// Returns a Controller in StateRunning.
func New(cfg Config, b Broker, w FileWatcher, log logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		config:    cfg,
		broker:    b,
		watcher:   w,
		logger:    log,
		checkPath: watcher.CheckRoot,
		exit:      os.Exit,
		stopChan:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(int32(StateRunning))

	return c
}

// State returns the current running state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Run starts the bridge and blocks until shutdown completes.
//
// Startup: install signal handlers, check the watch path, connect, start
// the watcher. Any failure returns ExitStartupFailure. Shutdown, once ctx
// is cancelled or a signal arrives: stop the watcher, join it, close it,
// disconnect, then release the logger.
func (c *Controller) Run(ctx context.Context) int {
	defer c.closeLogger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	done := make(chan struct{})
	defer close(done)

	go c.dispatchSignals(signals, done)
	go func() {
		select {
		case <-c.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if code := c.startup(); code != ExitOK {
		return code
	}

	for ctx.Err() == nil {
		if err := c.broker.Loop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("broker loop error", "error", err)
		}
	}

	// A cancelled parent context counts as a shutdown request.
	c.requestStop()

	c.shutdown()

	if c.State() == StateForceExit {
		return ExitForced
	}
	return ExitOK
}

// startup runs the startup sequence up to the main loop.
func (c *Controller) startup() int {
	if err := c.checkPath(c.config.WatchPath); err != nil {
		c.logger.Error("cannot watch path",
			"path", c.config.WatchPath,
			"error", err)
		return ExitStartupFailure
	}

	if err := c.broker.Connect(); err != nil {
		c.logger.Error("could not connect to broker", "error", err)
		return ExitStartupFailure
	}

	if err := c.watcher.Start(c.config.WatchPath, c.config.Recursive); err != nil {
		c.logger.Error("failed to start watcher",
			"path", c.config.WatchPath,
			"error", err)
		c.closeWatcher()
		c.broker.Disconnect()
		return ExitStartupFailure
	}

	c.logger.Info("watching path",
		"path", c.config.WatchPath,
		"recursive", c.config.Recursive)
	return ExitOK
}

// shutdown tears down in order. The watcher is joined before the broker
// goes away so no callback publishes on a closed connection.
func (c *Controller) shutdown() {
	c.logger.Info("shutting down")

	if err := c.watcher.Stop(); err != nil {
		c.logger.Warn("failed to stop watcher", "error", err)
	}

	if err := c.watcher.Join(c.config.JoinTimeout); err != nil {
		c.logger.Warn("watcher did not finish",
			"timeout", c.config.JoinTimeout,
			"error", err)
	}

	c.closeWatcher()
	c.broker.Disconnect()

	if c.stats != nil {
		s := c.stats.Stats()
		c.logger.Info("bridge stats",
			"published", s.Published,
			"failed", s.Failed,
			"skipped_dirs", s.Skipped)
	}

	c.logger.Info("Shutdown.")
}

func (c *Controller) closeWatcher() {
	if err := c.watcher.Close(); err != nil {
		c.logger.Warn("failed to close watcher", "error", err)
	}
}

// closeLogger releases the log output. A failure has nowhere left to go.
func (c *Controller) closeLogger() {
	_ = c.logger.Close() // nolint:errcheck
}

// dispatchSignals feeds OS signals into HandleSignal until Run returns.
// It keeps running through shutdown so a second interrupt can still
// force the exit.
func (c *Controller) dispatchSignals(signals <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case sig := <-signals:
			c.HandleSignal(sig)
		case <-done:
			return
		}
	}
}

// HandleSignal applies sig to the state machine:
//
//	running  --SIGINT/SIGTERM--> stopping
//	stopping --SIGINT-->         force-exit (exit with ExitForced)
//	stopping --SIGTERM-->        stopping
func (c *Controller) HandleSignal(sig os.Signal) {
	switch c.State() {
	case StateRunning:
		if c.requestStop() {
			c.logger.Info("shutdown requested", "signal", sig.String())
			return
		}
		// Lost the race to another request; treat as a repeat.
		c.HandleSignal(sig)

	case StateStopping:
		if sig != os.Interrupt {
			c.logger.Info("shutdown already in progress", "signal", sig.String())
			return
		}
		if c.state.CompareAndSwap(int32(StateStopping), int32(StateForceExit)) {
			c.logger.Warn("second interrupt during shutdown, exiting",
				"code", ExitForced)
			c.exit(ExitForced)
		}

	case StateForceExit:
	}
}

// requestStop moves running to stopping. It reports whether this call
// made the transition.
func (c *Controller) requestStop() bool {
	if !c.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return false
	}
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	return true
}
