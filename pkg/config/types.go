// Package config provides configuration management for dirwatcher.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority, applied as overrides)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.NewLoader(path).Load(func(c *config.Config) {
//	    c.Broker.Host = "mqtt.local"
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Watching %s\n", cfg.Watch.Path)
package config

import (
	"strings"
	"time"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Broker.Host is non-empty and Broker.Port is in 1-65535
// - Topic is non-empty and free of MQTT wildcards
// - Watch.Path is non-empty
// - All timeouts and reconnect delays are > 0.
type Config struct {
	// Broker connection settings
	Broker BrokerConfig `yaml:"broker"`

	// Base topic; events are published to <topic>/<event type>
	Topic string `yaml:"topic"`

	// Filesystem watch settings
	Watch WatchConfig `yaml:"watch"`

	// Reconnect behaviour after the connection drops
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// BrokerConfig contains MQTT broker settings.
type BrokerConfig struct {
	// Broker host name or address
	Host string `yaml:"host"`

	// Broker TCP port
	Port int `yaml:"port"`

	// MQTT client identifier
	ClientID string `yaml:"client_id"`

	// Optional credentials
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// MQTT keep-alive interval
	KeepAlive time.Duration `yaml:"keep_alive"`

	// Bound on the initial and each reconnect handshake
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// Bound on waiting for a publish acknowledgement
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// WatchConfig contains filesystem watch settings.
type WatchConfig struct {
	// Directory to observe
	Path string `yaml:"path"`

	// Observe subdirectories as well
	Recursive bool `yaml:"recursive"`

	// Upper bound on waiting for the watcher to finish at shutdown
	JoinTimeout time.Duration `yaml:"join_timeout"`

	// Notification buffer size; 0 uses an unbuffered watcher
	Buffer uint `yaml:"buffer"`
}

// ReconnectConfig contains reconnect timing.
type ReconnectConfig struct {
	// Wait before each reconnect attempt
	InitialDelay time.Duration `yaml:"initial_delay"`

	// Additional wait after a refused attempt
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// Longest single blocking step of the main loop
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json, auto)
	Format string `yaml:"format"`

	// Rotation size for file output
	MaxSizeMB int `yaml:"max_size_mb"`

	// Rotated files to keep
	MaxBackups int `yaml:"max_backups"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if c.Broker.Host == "" {
		return ErrNoBrokerHost
	}
	if c.Broker.Port <= 0 || c.Broker.Port > 65535 {
		return ErrInvalidBrokerPort
	}
	if c.Broker.ConnectTimeout <= 0 || c.Broker.PublishTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Topic == "" {
		return ErrNoTopic
	}
	if strings.ContainsAny(c.Topic, "+#") {
		return ErrInvalidTopic
	}

	if c.Watch.Path == "" {
		return ErrNoWatchPath
	}
	if c.Watch.JoinTimeout < 0 {
		return ErrInvalidTimeout
	}

	if c.Reconnect.InitialDelay <= 0 ||
		c.Reconnect.RetryBackoff <= 0 ||
		c.Reconnect.PollInterval <= 0 {
		return ErrInvalidReconnectDelay
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"auto": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with default values.
//
// Broker host, topic and watch path have no defaults and must be
// supplied by a file, the environment or flags.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Port:           DefaultBrokerPort,
			ClientID:       defaultClientID(),
			KeepAlive:      DefaultKeepAlive,
			ConnectTimeout: DefaultConnectTimeout,
			PublishTimeout: DefaultPublishTimeout,
		},
		Watch: WatchConfig{
			Recursive:   true,
			JoinTimeout: DefaultJoinTimeout,
		},
		Reconnect: ReconnectConfig{
			InitialDelay: DefaultInitialDelay,
			RetryBackoff: DefaultRetryBackoff,
			PollInterval: DefaultPollInterval,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
