package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Conduit/internal/domain"
)

// Publisher публикует события jobs в RabbitMQ.
// Реализует engine.EventPublisher.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// PublishEvent публикует событие job.
// Routing key — ID job: подписчики одного job получают только его поток.
func (p *Publisher) PublishEvent(ctx context.Context, event *domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangeJobEvents),
			event.JobID.String(), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    event.ID.String(),
				Type:         string(event.Type),
				Timestamp:    event.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish %s for job %s: %w", event.Type, event.JobID, err)
		}

		p.logger.Debug("published event",
			"event_type", event.Type,
			"job_id", event.JobID,
			"node_id", event.NodeID,
		)
		return nil
	})
}
