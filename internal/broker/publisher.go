// internal/broker/publisher.go
package broker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"comms-delivery/internal/common/config"
	"comms-delivery/internal/common/logger"
)

// Publisher emits JSON messages to the notify exchange. It covers both the
// producer side of the pipeline and the consumer's tier republish.
type Publisher struct {
	conn *Connection
	cfg  config.RabbitMQConfig
	log  logger.Logger
}

func NewPublisher(conn *Connection, cfg config.RabbitMQConfig, log logger.Logger) *Publisher {
	return &Publisher{
		conn: conn,
		cfg:  cfg,
		log:  log.WithFields(map[string]interface{}{"component": "publisher"}),
	}
}

// Publish sends a persistent message to the exchange under the given routing
// key. Headers may be nil.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error {
	ch := p.conn.Channel()
	if ch == nil {
		return fmt.Errorf("publish %s: broker connection not ready", routingKey)
	}

	err := ch.PublishWithContext(ctx,
		p.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// PublishNotify sends an inbound notify request to the live queue.
func (p *Publisher) PublishNotify(ctx context.Context, body []byte) error {
	return p.Publish(ctx, p.cfg.RoutingKey, body, nil)
}

// PublishRetry republishes a notify message to the delay queue for the given
// tier, stamping the retry-count header.
func (p *Publisher) PublishRetry(ctx context.Context, body []byte, tier int) error {
	headers := amqp.Table{RetryCountHeader: int32(tier)}
	return p.Publish(ctx, TierRoutingKey(p.cfg.RoutingKey, tier), body, headers)
}
