// Package broker manages the MQTT connection: the initial handshake,
// reconnection with a fixed backoff after the link drops, publishing and
// the graceful disconnect at shutdown.
//
// The paho client runs its own network goroutines; Connection disables
// the library's automatic reconnect and instead runs the reconnect loop
// from Loop, on the caller's goroutine, so that a cancelled context stops
// reconnection immediately.
package broker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/0xmhha/dirwatcher/pkg/logger"
)

// Connection is a single MQTT broker connection.
//
// Publish is safe to call from any goroutine. Connect, Loop and
// Disconnect are driven by one owner goroutine.
type Connection struct {
	cfg    Config
	addr   string
	client Client
	logger logger.Logger

	state atomic.Int32

	// lost holds at most one pending connection-lost notification.
	lost chan error
}

// Option configures a Connection.
type Option func(*connectionOptions)

type connectionOptions struct {
	factory ClientFactory
}

// WithClientFactory replaces the paho client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(o *connectionOptions) {
		o.factory = f
	}
}

func newPahoClient(opts *mqtt.ClientOptions) Client {
	return mqtt.NewClient(opts)
}

// New creates a disconnected Connection.
//
// Parameters:
//   - cfg: Connection settings; zero durations take the package defaults
//   - log: Logger instance
//   - opts: Optional settings
//
// Returns:
//   - Connection in StateDisconnected
//   - ErrNoHost if cfg.Host is empty
func New(cfg Config, log logger.Logger, opts ...Option) (*Connection, error) {
	if cfg.Host == "" {
		return nil, ErrNoHost
	}

	o := connectionOptions{factory: newPahoClient}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.withDefaults()

	c := &Connection{
		cfg:    cfg,
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		logger: log,
		lost:   make(chan error, 1),
	}
	c.state.Store(int32(StateDisconnected))
	c.client = o.factory(c.clientOptions())

	return c, nil
}

// clientOptions builds the paho options. Automatic reconnection is left
// to Loop.
func (c *Connection) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker("tcp://" + c.addr).
		SetClientID(c.cfg.ClientID).
		SetKeepAlive(c.cfg.KeepAlive).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	return opts
}

// Addr returns the broker address as host:port.
func (c *Connection) Addr() string {
	return c.addr
}

// State returns the current connection state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

func (c *Connection) setState(s State) {
	c.state.Store(int32(s))
}

// Connect performs the initial handshake, bounded by ConnectTimeout.
// Any failure is reported as ErrBrokerUnreachable.
func (c *Connection) Connect() error {
	c.logger.Info("connecting to broker", "broker", c.addr)

	if err := c.dial(); err != nil {
		c.logger.Error("could not connect to broker",
			"broker", c.addr,
			"error", err)
		return err
	}

	return nil
}

// dial runs one handshake and updates the state accordingly.
func (c *Connection) dial() error {
	c.setState(StateConnecting)

	token := c.client.Connect()
	if !token.WaitTimeout(c.cfg.ConnectTimeout) {
		c.setState(StateDisconnected)
		return fmt.Errorf("%w: %s: no answer within %s", ErrBrokerUnreachable, c.addr, c.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("%w: %s: %v", ErrBrokerUnreachable, c.addr, err)
	}

	c.setState(StateConnected)
	return nil
}

// onConnect runs on a paho goroutine after every successful handshake.
func (c *Connection) onConnect(mqtt.Client) {
	c.logger.Info("connected to broker", "broker", c.addr)
}

// onConnectionLost runs on a paho goroutine when an established
// connection drops.
func (c *Connection) onConnectionLost(_ mqtt.Client, err error) {
	c.setState(StateDisconnected)

	select {
	case c.lost <- err:
	default:
		// A notification is already pending.
	}
}

// Loop runs one iteration of the connection loop. It blocks for at most
// PollInterval unless the connection was lost, in which case it
// reconnects before returning: wait InitialDelay, attempt, and on refusal
// wait RetryBackoff and go again until connected.
//
// Loop returns ctx.Err() as soon as ctx is cancelled, including in the
// middle of a reconnect wait.
func (c *Connection) Loop(ctx context.Context) error {
	timer := time.NewTimer(c.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.lost:
		c.logger.Warn("disconnected from broker",
			"broker", c.addr,
			"error", err)
		return c.reconnect(ctx)
	case <-timer.C:
		return nil
	}
}

// reconnect retries the handshake until it succeeds or ctx is cancelled.
func (c *Connection) reconnect(ctx context.Context) error {
	for attempt := 1; c.State() == StateDisconnected; attempt++ {
		if err := sleep(ctx, c.cfg.InitialDelay); err != nil {
			return err
		}

		c.logger.Info("attempting to reconnect",
			"broker", c.addr,
			"attempt", attempt)

		err := c.dial()
		if err == nil {
			c.logger.Info("reconnected to broker",
				"broker", c.addr,
				"attempts", attempt)
			return nil
		}

		c.logger.Warn("reconnect refused",
			"broker", c.addr,
			"error", err,
			"retry_in", c.cfg.RetryBackoff)

		if err := sleep(ctx, c.cfg.RetryBackoff); err != nil {
			return err
		}
	}

	return nil
}

// Publish sends payload to topic and waits up to PublishTimeout for the
// transport to complete the QoS flow. Failures are returned, never
// retried. While disconnected the transport rejects the message.
func (c *Connection) Publish(topic, payload string, qos byte) error {
	token := c.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(c.cfg.PublishTimeout) {
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	c.logger.Debug("published message",
		"topic", topic,
		"qos", qos,
		"bytes", len(payload))
	return nil
}

// Disconnect closes the connection gracefully. Safe to call when not
// connected.
func (c *Connection) Disconnect() {
	if c.client.IsConnected() {
		c.client.Disconnect(disconnectQuiesce)
		c.logger.Info("disconnected from broker", "broker", c.addr)
	}
	c.setState(StateDisconnected)
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
