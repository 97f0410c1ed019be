package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// ExchangeJobEvents — topic-обменник событий jobs.
// Routing key — ID job.
const ExchangeJobEvents Exchange = "conduit.jobs.events"

// QueueJobEventsAudit — durable очередь со всеми событиями.
// Для внешних потребителей (аудит, вебхуки, индексация).
const QueueJobEventsAudit Queue = "jobs.events.audit"

// SetupTopology объявляет обменники и очереди.
// Идемпотентна: повторное объявление тех же сущностей безопасно.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeJobEvents),
			"topic",
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeJobEvents, err)
		}

		_, err = ch.QueueDeclare(
			string(QueueJobEventsAudit),
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueJobEventsAudit, err)
		}

		// "#" — очередь аудита получает события всех jobs
		err = ch.QueueBind(
			string(QueueJobEventsAudit),
			"#",
			string(ExchangeJobEvents),
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", QueueJobEventsAudit, err)
		}

		return nil
	})
}
