package bridge

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/dirwatcher/pkg/logger"
	"github.com/0xmhha/dirwatcher/pkg/watcher"
)

type publishCall struct {
	topic   string
	payload string
	qos     byte
}

// mockPublisher records publish calls.
type mockPublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (m *mockPublisher) Publish(topic, payload string, qos byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, publishCall{topic: topic, payload: payload, qos: qos})
	return m.err
}

func (m *mockPublisher) getCalls() []publishCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]publishCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func newTestBridge(t *testing.T, base string, pub Publisher) *Bridge {
	t.Helper()

	b, err := New(Config{BaseTopic: base}, pub, logger.Noop())
	require.NoError(t, err)
	return b
}

func TestNew(t *testing.T) {
	_, err := New(Config{}, &mockPublisher{}, logger.Noop())
	assert.ErrorIs(t, err, ErrNoBaseTopic)

	_, err = New(Config{BaseTopic: "a"}, nil, logger.Noop())
	assert.ErrorIs(t, err, ErrNilPublisher)
}

func TestHandleEventCreated(t *testing.T) {
	pub := &mockPublisher{}
	b := newTestBridge(t, "sensors/dir", pub)

	b.HandleEvent(watcher.Event{Path: "/data/x.txt", Op: watcher.OpCreated})

	calls := pub.getCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, publishCall{topic: "sensors/dir/created", payload: "/data/x.txt", qos: 2}, calls[0])
}

func TestHandleEventTopics(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		op    watcher.Op
		topic string
	}{
		{"created", "sensors/dir", watcher.OpCreated, "sensors/dir/created"},
		{"modified", "sensors/dir", watcher.OpModified, "sensors/dir/modified"},
		{"deleted", "sensors/dir", watcher.OpDeleted, "sensors/dir/deleted"},
		{"moved", "sensors/dir", watcher.OpMoved, "sensors/dir/moved"},
		{"trailing slash base", "sensors/dir/", watcher.OpCreated, "sensors/dir/created"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			b := newTestBridge(t, tt.base, pub)

			b.HandleEvent(watcher.Event{Path: "rel/path.txt", Op: tt.op})

			calls := pub.getCalls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.topic, calls[0].topic)
			assert.Equal(t, "rel/path.txt", calls[0].payload)
			assert.Equal(t, QoS, calls[0].qos)
		})
	}
}

func TestHandleEventSkipsDirectories(t *testing.T) {
	pub := &mockPublisher{}
	b := newTestBridge(t, "sensors/dir", pub)

	for _, op := range []watcher.Op{watcher.OpCreated, watcher.OpModified, watcher.OpDeleted, watcher.OpMoved} {
		b.HandleEvent(watcher.Event{Path: "/data/sub", Op: op, IsDir: true})
	}

	assert.Empty(t, pub.getCalls())
	assert.Equal(t, 4, b.Stats().Skipped)
}

func TestHandleEventPublishFailure(t *testing.T) {
	pub := &mockPublisher{err: errors.New("not connected")}
	b := newTestBridge(t, "sensors/dir", pub)

	b.HandleEvent(watcher.Event{Path: "/data/x.txt", Op: watcher.OpDeleted})

	// Attempted once, never retried.
	assert.Len(t, pub.getCalls(), 1)

	stats := b.Stats()
	assert.Equal(t, 0, stats.Published)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, Counts{Failed: 1}, stats.ByOp["deleted"])
}

func TestStats(t *testing.T) {
	pub := &mockPublisher{}
	b := newTestBridge(t, "t", pub)

	b.HandleEvent(watcher.Event{Path: "a", Op: watcher.OpCreated})
	b.HandleEvent(watcher.Event{Path: "a", Op: watcher.OpModified})
	b.HandleEvent(watcher.Event{Path: "a", Op: watcher.OpModified})
	b.HandleEvent(watcher.Event{Path: "d", Op: watcher.OpCreated, IsDir: true})

	stats := b.Stats()
	assert.Equal(t, 3, stats.Published)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, Counts{Published: 1}, stats.ByOp["created"])
	assert.Equal(t, Counts{Published: 2}, stats.ByOp["modified"])

	// Snapshot is detached from later updates.
	b.HandleEvent(watcher.Event{Path: "a", Op: watcher.OpCreated})
	assert.Equal(t, Counts{Published: 1}, stats.ByOp["created"])
}

func TestHandleEventConcurrent(t *testing.T) {
	pub := &mockPublisher{}
	b := newTestBridge(t, "t", pub)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.HandleEvent(watcher.Event{Path: "f", Op: watcher.OpModified})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, pub.getCalls(), 1000)
	assert.Equal(t, 1000, b.Stats().Published)
}
