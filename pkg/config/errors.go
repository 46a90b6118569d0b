package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoBrokerHost is returned when no broker host is configured.
	ErrNoBrokerHost = errors.New("no broker host specified")

	// ErrInvalidBrokerPort is returned when the broker port is outside 1-65535.
	ErrInvalidBrokerPort = errors.New("invalid broker port: must be between 1 and 65535")

	// ErrNoTopic is returned when the base topic is empty.
	ErrNoTopic = errors.New("no base topic specified")

	// ErrInvalidTopic is returned when the base topic contains MQTT wildcards.
	ErrInvalidTopic = errors.New("invalid base topic: must not contain '+' or '#'")

	// ErrNoWatchPath is returned when no watch path is configured.
	ErrNoWatchPath = errors.New("no watch path specified")

	// ErrInvalidTimeout is returned when a connection timeout is <= 0.
	ErrInvalidTimeout = errors.New("invalid timeout: must be > 0")

	// ErrInvalidReconnectDelay is returned when a reconnect delay is <= 0.
	ErrInvalidReconnectDelay = errors.New("invalid reconnect delay: must be > 0")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text, json, or auto")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
