// internal/broker/connection.go
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"comms-delivery/internal/common/config"
	"comms-delivery/internal/common/logger"
)

// Connection owns the AMQP connection and channel with an explicit
// lifecycle: Connect, WaitForReady, Close. It is injected into the publisher
// and consumer rather than shared as ambient state.
type Connection struct {
	cfg config.RabbitMQConfig
	log logger.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	ready   chan struct{}
}

func NewConnection(cfg config.RabbitMQConfig, log logger.Logger) *Connection {
	return &Connection{
		cfg:   cfg,
		log:   log.WithFields(map[string]interface{}{"component": "broker"}),
		ready: make(chan struct{}),
	}
}

// Connect dials the broker, opens a channel, and declares the notify
// topology. It is safe to call once; reconnect policy is the caller's
// startup backoff loop.
func (c *Connection) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := amqp.DialConfig(c.cfg.URL, amqp.Config{
		Heartbeat: time.Duration(c.cfg.HeartbeatSecs) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := DeclareTopology(ch, c.cfg); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare topology: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	close(c.ready)
	c.mu.Unlock()

	c.log.Info("broker connected", map[string]interface{}{
		"exchange": c.cfg.Exchange,
		"queue":    c.cfg.Queue,
		"tiers":    len(c.cfg.RetryTiersMS),
	})
	return nil
}

// WaitForReady blocks until Connect has completed or the context expires.
func (c *Connection) WaitForReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Channel returns the shared AMQP channel. Callers must not close it.
func (c *Connection) Channel() *amqp.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Close tears down the channel and connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
