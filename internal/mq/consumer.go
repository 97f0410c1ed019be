package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Conduit/internal/domain"
)

// Handler — обработчик события.
// Ошибка возвращает сообщение в очередь для повторной доставки.
type Handler func(ctx context.Context, event *domain.Event) error

// Consumer потребляет события из именованной очереди.
//
// Для durable очередей (аудит): переживает реконнект,
// подтверждает сообщения вручную.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	handler  Handler
	prefetch int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик событий.
	Handler Handler

	// Prefetch — количество сообщений предварительной загрузки.
	Prefetch int
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start запускает потребление. Блокирует до отмены контекста.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
				continue
			}
		}

		c.logger.Info("consumer started", "queue", c.queue)

		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, reconnecting", "queue", c.queue)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack — подтверждаем вручную
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.handleDelivery(ctx, raw)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	var event domain.Event
	if err := json.Unmarshal(raw.Body, &event); err != nil {
		c.logger.Error("failed to unmarshal event",
			"queue", c.queue,
			"error", err,
			"body", string(raw.Body),
		)
		raw.Nack(false, false)
		return
	}

	if err := c.handler(ctx, &event); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"event_type", event.Type,
			"job_id", event.JobID,
			"error", err,
		)
		raw.Nack(false, true)
		return
	}

	raw.Ack(false)
}

// WatchJob подписывается на события одного job.
//
// Создаёт эксклюзивную auto-delete очередь с binding по ID job и
// вызывает handler для каждого события. Возвращается после
// терминального события (job_completed/job_failed/job_cancelled)
// или отмены контекста.
func WatchJob(ctx context.Context, conn *Connection, jobID string, handler Handler) error {
	ch := conn.Channel()
	if ch == nil {
		return fmt.Errorf("no channel available")
	}

	q, err := ch.QueueDeclare(
		"",    // имя генерирует сервер
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare watch queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, jobID, string(ExchangeJobEvents), false, nil); err != nil {
		return fmt.Errorf("bind watch queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume watch queue: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("watch channel closed")
			}

			var event domain.Event
			if err := json.Unmarshal(raw.Body, &event); err != nil {
				continue
			}
			if err := handler(ctx, &event); err != nil {
				return err
			}

			switch event.Type {
			case domain.EventJobCompleted, domain.EventJobFailed, domain.EventJobCancelled:
				return nil
			}
		}
	}
}
