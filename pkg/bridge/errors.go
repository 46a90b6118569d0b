package bridge

import "errors"

// Sentinel errors for bridge construction.
var (
	// ErrNoBaseTopic indicates an empty base topic.
	ErrNoBaseTopic = errors.New("base topic is required")

	// ErrNilPublisher indicates no publisher was supplied.
	ErrNilPublisher = errors.New("publisher is required")
)
