package events

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
)

// Handler processes one delivered Event. A non-nil return nacks the
// delivery so RabbitMQ redelivers it; handlers must be idempotent since a
// redelivery after a crash mid-handling is expected, not exceptional.
type Handler func(ctx context.Context, evt Event) error

// Consumer binds a queue to the topic exchange events.Connect declares and
// dispatches each delivery to handler; this service runs a single
// wallet-projection consumer.
type Consumer struct {
	channel  *amqp.Channel
	exchange string
	queue    string
	logger   mlog.Logger
}

// NewConsumer declares queue, binds it to exchange for every routingKey,
// and returns a Consumer ready to Run.
func NewConsumer(channel *amqp.Channel, exchange, queue string, routingKeys []string, logger mlog.Logger) (*Consumer, error) {
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, err
	}

	for _, key := range routingKeys {
		if err := channel.QueueBind(queue, key, exchange, false, nil); err != nil {
			return nil, err
		}
	}

	return &Consumer{channel: channel, exchange: exchange, queue: queue, logger: logger}, nil
}

// Run consumes deliveries until ctx is cancelled, dispatching each to
// handler. Unmarshal failures are logged and acked (the message is not
// retryable); handler failures nack the delivery for redelivery.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}

			c.dispatch(ctx, d, handler)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery, handler Handler) {
	var evt Event

	if err := json.Unmarshal(d.Body, &evt); err != nil {
		c.logger.Errorf("events: unmarshal delivery on %s: %v", c.queue, err)
		d.Ack(false) //nolint:errcheck

		return
	}

	if err := handler(ctx, evt); err != nil {
		c.logger.Errorf("events: handler failed for %s: %v", evt.Topic, err)
		d.Nack(false, true) //nolint:errcheck

		return
	}

	d.Ack(false) //nolint:errcheck
}
