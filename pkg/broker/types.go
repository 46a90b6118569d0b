package broker

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// State is the connection state of a Connection.
type State int32

const (
	// StateDisconnected is the initial state and the state after any
	// transport failure.
	StateDisconnected State = iota
	// StateConnecting is held while a handshake is in flight.
	StateConnecting
	// StateConnected follows a successful handshake.
	StateConnected
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Client is the subset of the paho client used by Connection.
// mqtt.Client satisfies it.
type Client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

// ClientFactory builds a Client from fully populated options.
type ClientFactory func(opts *mqtt.ClientOptions) Client

// Config contains connection settings.
type Config struct {
	Host     string
	Port     int
	ClientID string
	Username string
	Password string

	// KeepAlive is the MQTT keep-alive interval.
	KeepAlive time.Duration

	// ConnectTimeout bounds each connection handshake.
	ConnectTimeout time.Duration

	// PublishTimeout bounds the wait for a publish acknowledgement.
	PublishTimeout time.Duration

	// InitialDelay is the wait before each reconnect attempt.
	InitialDelay time.Duration

	// RetryBackoff is the additional wait after a refused reconnect.
	RetryBackoff time.Duration

	// PollInterval is the longest a single Loop call blocks.
	PollInterval time.Duration
}

// Default timings applied to zero Config fields.
const (
	DefaultPort           = 1883
	DefaultKeepAlive      = 60 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultPublishTimeout = 5 * time.Second
	DefaultInitialDelay   = 1 * time.Second
	DefaultRetryBackoff   = 5 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond

	// disconnectQuiesce is the time in milliseconds given to in-flight
	// work on a graceful disconnect.
	disconnectQuiesce = 250
)

// withDefaults returns a copy of c with zero fields set to defaults.
func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = DefaultKeepAlive
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = DefaultPublishTimeout
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}
