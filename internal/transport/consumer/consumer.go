package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/noelbox/storefront/internal/dal/rabbitmq"
	"github.com/noelbox/storefront/internal/service/models/notification"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// DefaultQueue carries order confirmations from the webhook to the mail sender.
const DefaultQueue = "order.confirmation"

// service represents the service layer interface.
type service interface {
	SendConfirmation(ctx context.Context, c notification.OrderConfirmation) error
}

type source interface {
	DeclareQueue(cfg rabbitmq.DeclareQueueConfig) (amqp.Queue, error)
	Consume(cfg rabbitmq.ConsumeConfig) (<-chan amqp.Delivery, error)
}

// Config controls the consumer.
type Config struct {
	Queue       string
	ConsumerTag string
	Concurrency int
}

// Consumer delivers queued order confirmations.
type Consumer struct {
	client   source
	service  service
	cfg      Config
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewConsumer creates a new Consumer and declares its queue.
func NewConsumer(client source, service service, cfg Config) (*Consumer, error) {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.ConsumerTag == "" {
		cfg.ConsumerTag = "storefront-mailer"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}

	if _, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    cfg.Queue,
		Durable: true,
	}); err != nil {
		return nil, err
	}

	return &Consumer{
		client:  client,
		service: service,
		cfg:     cfg,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Run consumes until Shutdown is called or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.cfg.Queue,
		Consumer: c.cfg.ConsumerTag,
	})
	if err != nil {
		close(c.done)

		return err
	}

	slog.Info("Consumer started", "queue", c.cfg.Queue, "consumer_tag", c.cfg.ConsumerTag)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

loop:
	for {
		select {
		case <-c.stop:
			slog.Info("Stopping consumer")

			break loop
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("Message channel closed")

				break loop
			}

			g.Go(func() error {
				c.processMessage(gctx, msg)

				return nil
			})
		}
	}

	err = g.Wait()
	close(c.done)

	return err
}

// processMessage sends one confirmation. Malformed messages are dropped,
// failed sends are requeued once and then dropped.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	var conf notification.OrderConfirmation
	if err := json.Unmarshal(msg.Body, &conf); err != nil || conf.OrderID == "" {
		slog.Error("Dropping malformed confirmation", "delivery_tag", msg.DeliveryTag, "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}
	span.SetAttributes(attribute.String("order.id", conf.OrderID))

	if err := c.service.SendConfirmation(ctx, conf); err != nil {
		requeue := !msg.Redelivered
		slog.Error("Failed to send order confirmation", "order_id", conf.OrderID, "requeue", requeue, "error", err)
		if err := msg.Nack(false, requeue); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)
	}
}

// Shutdown stops consuming and waits for in-flight messages.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	c.stopOnce.Do(func() { close(c.stop) })

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
