// internal/consumer/consumer.go
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"comms-delivery/internal/broker"
	"comms-delivery/internal/common/config"
	stderrors "comms-delivery/internal/common/errors"
	"comms-delivery/internal/common/logger"
	"comms-delivery/internal/common/metrics"
	"comms-delivery/internal/workers/communication/deliver"
)

// retryPublisher is the slice of the broker publisher the consumer uses.
type retryPublisher interface {
	PublishRetry(ctx context.Context, body []byte, tier int) error
}

// Consumer drains the notify queue. Every delivery is acked exactly once
// regardless of outcome; retries happen by republishing the body to a tier
// delay queue with an incremented retry-count header, never by nacking.
type Consumer struct {
	conn     *broker.Connection
	pub      retryPublisher
	cfg      config.RabbitMQConfig
	scopes   *ScopeFactory
	log      logger.Logger
	maxTiers int
}

func New(conn *broker.Connection, pub retryPublisher, cfg config.RabbitMQConfig, scopes *ScopeFactory, log logger.Logger) *Consumer {
	return &Consumer{
		conn:     conn,
		pub:      pub,
		cfg:      cfg,
		scopes:   scopes,
		log:      log.WithFields(map[string]interface{}{"component": "consumer"}),
		maxTiers: len(cfg.RetryTiersMS),
	}
}

// Run consumes until the context is cancelled or the delivery channel
// closes. The caller owns reconnecting after a close.
func (c *Consumer) Run(ctx context.Context) error {
	ch := c.conn.Channel()
	if ch == nil {
		return fmt.Errorf("consume: broker connection not ready")
	}

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	deliveries, err := ch.Consume(
		c.cfg.Queue,
		c.cfg.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consume on %s: %w", c.cfg.Queue, err)
	}

	c.log.Info("consuming notify queue", map[string]interface{}{
		"queue":    c.cfg.Queue,
		"prefetch": c.cfg.Prefetch,
		"tiers":    c.maxTiers,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	metrics.NotificationsConsumed.Inc()
	started := time.Now()
	defer func() {
		metrics.HandleDuration.Observe(time.Since(started).Seconds())
	}()

	// Ack unconditionally. The body has already been captured for any
	// republish; a poison message must never wedge the queue.
	defer func() {
		if err := d.Ack(false); err != nil {
			c.log.Error("failed to ack delivery", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	var input deliver.Input

	// A panicking handler must not take the consumer down; treat it like
	// any other retryable internal failure.
	defer func() {
		if r := recover(); r != nil {
			err := stderrors.NewInternalError(fmt.Errorf("panic: %v", r))
			metrics.NotificationsFailed.WithLabelValues(string(stderrors.ErrCodeInternal)).Inc()
			c.log.Error("recovered from panic while handling notify message", map[string]interface{}{
				"correlationId": input.CorrelationID,
				"error":         err.Error(),
			})
			c.scheduleRetry(ctx, d, input.CorrelationID, err)
		}
	}()

	if err := validatePayload(d.Body); err != nil {
		metrics.NotificationsFailed.WithLabelValues(string(stderrors.ErrCodeValidationFailed)).Inc()
		c.log.Warn("dropping notify message that failed schema validation", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := json.Unmarshal(d.Body, &input); err != nil {
		metrics.NotificationsFailed.WithLabelValues(string(stderrors.ErrCodeValidationFailed)).Inc()
		c.log.Warn("dropping undecodable notify message", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	handler := c.scopes.Handler(input.CorrelationID)
	out, err := handler.Execute(ctx, &input)
	if err == nil {
		if out != nil && !out.Success && len(out.Attempts) > 0 {
			// All attempted channels failed non-retryably; recorded, done.
			metrics.NotificationsFailed.WithLabelValues(string(stderrors.ErrCodeProviderError)).Inc()
		}
		return
	}

	code := stderrors.CodeOf(err)
	metrics.NotificationsFailed.WithLabelValues(string(code)).Inc()

	if !stderrors.IsRetryable(err) {
		c.log.Warn("terminal delivery failure, not retrying", map[string]interface{}{
			"correlationId": input.CorrelationID,
			"code":          string(code),
			"error":         err.Error(),
		})
		return
	}

	c.scheduleRetry(ctx, d, input.CorrelationID, err)
}

// scheduleRetry republishes the body to the next tier delay queue, or drops
// after the last tier.
func (c *Consumer) scheduleRetry(ctx context.Context, d amqp.Delivery, correlationID string, cause error) {
	next := broker.RetryCountFromHeaders(d.Headers) + 1

	if next > c.maxTiers {
		metrics.RetriesExhausted.Inc()
		c.log.Error("retries exhausted, dropping notify message", map[string]interface{}{
			"correlationId": correlationID,
			"retries":       next - 1,
			"error":         cause.Error(),
		})
		return
	}

	if err := c.pub.PublishRetry(ctx, d.Body, next); err != nil {
		// The message is lost unless the broker redelivers; all we can do
		// here is record it loudly.
		metrics.NotificationsFailed.WithLabelValues(string(stderrors.ErrCodeBrokerError)).Inc()
		c.log.Error("failed to republish for retry", map[string]interface{}{
			"correlationId": correlationID,
			"tier":          next,
			"error":         err.Error(),
		})
		return
	}

	metrics.RetriesScheduled.WithLabelValues(strconv.Itoa(next)).Inc()
	c.log.Info("scheduled delivery retry", map[string]interface{}{
		"correlationId": correlationID,
		"tier":          next,
		"cause":         cause.Error(),
	})
}
