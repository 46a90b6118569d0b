// Package bridge turns filesystem events into broker messages.
//
// Each non-directory event is published on <base topic>/<event type>
// with the affected path as payload. Directory events are dropped.
package bridge

import (
	"sync"

	"github.com/0xmhha/dirwatcher/pkg/logger"
	"github.com/0xmhha/dirwatcher/pkg/topic"
	"github.com/0xmhha/dirwatcher/pkg/watcher"
)

// Bridge implements watcher.Handler.
type Bridge struct {
	base      string
	publisher Publisher
	logger    logger.Logger

	mu    sync.Mutex
	stats Stats
}

var _ watcher.Handler = (*Bridge)(nil)

// New creates a bridge publishing through pub.
//
// Parameters:
//   - cfg: Bridge configuration
//   - pub: Destination for messages
//   - log: Logger instance
//
// Returns:
//   - Configured Bridge
//   - ErrNoBaseTopic or ErrNilPublisher on invalid input
func New(cfg Config, pub Publisher, log logger.Logger) (*Bridge, error) {
	if cfg.BaseTopic == "" {
		return nil, ErrNoBaseTopic
	}
	if pub == nil {
		return nil, ErrNilPublisher
	}

	return &Bridge{
		base:      cfg.BaseTopic,
		publisher: pub,
		logger:    log,
		stats:     Stats{ByOp: make(map[string]Counts)},
	}, nil
}

// HandleEvent implements watcher.Handler. It runs on the watcher
// goroutine; publish failures are logged and counted, not retried.
func (b *Bridge) HandleEvent(event watcher.Event) {
	if event.IsDir {
		b.mu.Lock()
		b.stats.Skipped++
		b.mu.Unlock()

		b.logger.Debug("skipping directory event",
			"path", event.Path,
			"op", event.Op.String())
		return
	}

	op := event.Op.String()
	t := topic.Render(b.base, op)

	err := b.publisher.Publish(t, event.Path, QoS)

	b.mu.Lock()
	counts := b.stats.ByOp[op]
	if err != nil {
		counts.Failed++
		b.stats.Failed++
	} else {
		counts.Published++
		b.stats.Published++
	}
	b.stats.ByOp[op] = counts
	b.mu.Unlock()

	if err != nil {
		b.logger.Warn("failed to publish event",
			"topic", t,
			"path", event.Path,
			"error", err)
		return
	}

	b.logger.Debug("published event",
		"topic", t,
		"path", event.Path)
}

// Stats returns a snapshot of the counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stats
	s.ByOp = make(map[string]Counts, len(b.stats.ByOp))
	for op, c := range b.stats.ByOp {
		s.ByOp[op] = c
	}
	return s
}
