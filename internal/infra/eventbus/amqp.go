// Package eventbus provides the event-bus publisher adapters.
package eventbus

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/streadway/amqp"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/command"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/event"
)

// AMQPConfig holds the rabbitmq connection settings.
type AMQPConfig struct {
	URI       string
	QueueName string
}

// AMQPPublisher publishes domain events to a durable rabbitmq queue.
// Delivery is at-least-once; consumers deduplicate on the event ID.
type AMQPPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

var _ command.EventBus = (*AMQPPublisher)(nil)

// NewAMQPPublisher dials rabbitmq and declares the event queue.
func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URI)
	if err != nil {
		return nil, errors.Wrap(err, "amqp dial")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "amqp channel")
	}

	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "amqp queue declare")
	}

	return &AMQPPublisher{
		conn:  conn,
		ch:    ch,
		queue: cfg.QueueName,
	}, nil
}

// Publish sends each event as its own persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, events ...event.Event) error {
	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return errors.Wrapf(err, "failed to encode event %s", ev.ID)
		}

		err = p.ch.Publish("", p.queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Type:         string(ev.Type),
			Timestamp:    ev.OccurredAt,
			Body:         body,
		})
		if err != nil {
			return errors.Wrapf(err, "failed to publish event %s", ev.ID)
		}
		zlog.Debug().Str("event_id", ev.ID).Str("type", string(ev.Type)).Msg("event published")
	}
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
