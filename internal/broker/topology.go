// internal/broker/topology.go
package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"comms-delivery/internal/common/config"
)

// RetryCountHeader is the integer message header tracking how many tier
// retries a notify message has been through. Absent means zero.
const RetryCountHeader = "x-retry-count"

// TierQueueName returns the delay queue for a given retry count. Tiers are
// 1-based: a message republished with retry count 1 goes to tier 1.
func TierQueueName(queue string, tier int) string {
	return fmt.Sprintf("%s.retry.%d", queue, tier)
}

// TierRoutingKey returns the routing key bound to a tier queue.
func TierRoutingKey(routingKey string, tier int) string {
	return fmt.Sprintf("%s.retry.%d", routingKey, tier)
}

// DeclareTopology declares the notify exchange, the live queue, and one
// delay queue per retry tier. Each tier queue has a fixed message TTL acting
// as the retry delay; its dead-letter routing points back at the live queue,
// so expiry redelivers the message without any scheduler process.
func DeclareTopology(ch *amqp.Channel, cfg config.RabbitMQConfig) error {
	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	if _, err := ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}

	if err := ch.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", cfg.Queue, err)
	}

	for i, ttlMS := range cfg.RetryTiersMS {
		tier := i + 1
		name := TierQueueName(cfg.Queue, tier)
		args := amqp.Table{
			"x-message-ttl":             int32(ttlMS),
			"x-dead-letter-exchange":    cfg.Exchange,
			"x-dead-letter-routing-key": cfg.RoutingKey,
		}

		if _, err := ch.QueueDeclare(name, true, false, false, false, args); err != nil {
			return fmt.Errorf("declare tier queue %s: %w", name, err)
		}
		if err := ch.QueueBind(name, TierRoutingKey(cfg.RoutingKey, tier), cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind tier queue %s: %w", name, err)
		}
	}

	return nil
}

// RetryCountFromHeaders reads the retry-count header, defaulting to 0 when
// absent or malformed.
func RetryCountFromHeaders(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers[RetryCountHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
