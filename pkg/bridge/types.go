package bridge

// QoS is the delivery level requested for every event message.
const QoS byte = 2

// Publisher sends a message to the broker. Implementations must be safe
// for use from the watcher goroutine.
type Publisher interface {
	Publish(topic, payload string, qos byte) error
}

// Config contains bridge configuration.
type Config struct {
	// BaseTopic is the prefix of every published topic.
	BaseTopic string
}

// Counts holds per-event-type counters.
type Counts struct {
	Published int
	Failed    int
}

// Stats summarizes bridge activity.
type Stats struct {
	// ByOp is keyed by event type name (created, modified, ...).
	ByOp map[string]Counts

	// Published is the total number of successful publishes.
	Published int

	// Failed is the total number of publishes the transport rejected.
	Failed int

	// Skipped is the number of directory events discarded.
	Skipped int
}
