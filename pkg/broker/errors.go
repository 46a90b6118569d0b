package broker

import "errors"

// Sentinel errors for broker operations.
var (
	// ErrBrokerUnreachable indicates the broker refused or did not answer
	// the connection handshake.
	ErrBrokerUnreachable = errors.New("broker unreachable")

	// ErrPublishTimeout indicates the transport did not acknowledge a
	// publish within the configured timeout.
	ErrPublishTimeout = errors.New("publish timed out")

	// ErrNoHost indicates the connection was configured without a host.
	ErrNoHost = errors.New("broker host is required")
)
