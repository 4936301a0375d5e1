package events

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
)

// RabbitMQPublisher publishes events to a topic exchange, one routing key
// per event topic (ledger.<type>.completed, wallet.<op>.completed).
type RabbitMQPublisher struct {
	channel  *amqp.Channel
	exchange string
	logger   mlog.Logger
}

// NewRabbitMQPublisher builds a publisher bound to the given topic exchange.
func NewRabbitMQPublisher(channel *amqp.Channel, exchange string, logger mlog.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{channel: channel, exchange: exchange, logger: logger}
}

// Publish serializes evt and publishes it; any failure is logged and
// swallowed, never propagated to the caller.
func (p *RabbitMQPublisher) Publish(ctx context.Context, evt Event) {
	body, err := json.Marshal(evt)
	if err != nil {
		p.logger.Errorf("events: marshal %s: %v", evt.Topic, err)
		return
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, evt.Topic, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		p.logger.Errorf("events: publish %s: %v", evt.Topic, err)
	}
}

// Connect opens a channel on conn and declares the topic exchange events
// are published to.
func Connect(conn *amqp.Connection, exchange string) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}

	return ch, nil
}
