package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultReconnectDelay = 3 * time.Second

// ConnectionConfig holds the broker URL and the fixed reconnect delay.
type ConnectionConfig struct {
	URL            string
	ReconnectDelay time.Duration
}

// ConnectionOption customises a Connection.
type ConnectionOption func(*Connection)

// WithDialer replaces the AMQP dialer, e.g. with an in-memory broker.
func WithDialer(dial DialFunc) ConnectionOption {
	return func(c *Connection) {
		c.dial = dial
	}
}

// Connection is the process-wide broker connection. It connects lazily on
// first use and, once a live connection is lost, reconnects after a fixed
// delay until it succeeds or Close is called.
type Connection struct {
	cfg    ConnectionConfig
	dial   DialFunc
	logger *slog.Logger

	mu     sync.Mutex
	conn   Conn
	closed bool
	done   chan struct{}
}

// NewConnection returns an unconnected Connection; nothing is dialled until first use.
func NewConnection(cfg ConnectionConfig, logger *slog.Logger, opts ...ConnectionOption) *Connection {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	c := &Connection{
		cfg:    cfg,
		dial:   DialAMQP,
		logger: logger.With(slog.String("component", "broker.connection")),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes the connection if it is not already up.
func (c *Connection) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

// Channel opens a new channel, connecting first if needed.
func (c *Connection) Channel(ctx context.Context) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: open channel: %w", ErrNotConnected, err)
	}
	return ch, nil
}

// RetryDelay is the fixed delay used between reconnect attempts.
func (c *Connection) RetryDelay() time.Duration {
	return c.cfg.ReconnectDelay
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}

func (c *Connection) connectLocked() error {
	if c.closed {
		return ErrShutdown
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return nil
	}

	conn, err := c.dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	c.conn = conn
	// registered before the watcher starts so an early drop is not missed
	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))
	go c.watch(closeCh)

	c.logger.Info("connected to broker")
	return nil
}

func (c *Connection) watch(closeCh <-chan *amqp.Error) {
	var amqpErr *amqp.Error
	select {
	case <-c.done:
		return
	case amqpErr = <-closeCh:
	}

	if c.isClosed() {
		return
	}
	if amqpErr != nil {
		c.logger.Warn("broker connection closed",
			slog.Int("code", amqpErr.Code),
			slog.String("reason", amqpErr.Reason),
		)
	} else {
		c.logger.Warn("broker connection closed")
	}

	c.reconnect()
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Connection) reconnect() {
	for attempt := 1; ; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}

		c.mu.Lock()
		err := c.connectLocked()
		c.mu.Unlock()

		switch {
		case err == nil:
			c.logger.Info("reconnected to broker", slog.Int("attempt", attempt))
			return
		case errors.Is(err, ErrShutdown):
			return
		default:
			c.logger.Warn("reconnect failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
		}
	}
}
