package notifysvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/noelbox/storefront/internal/service/models/notification"
)

// DirectDispatcher sends confirmations from a background goroutine.
// The caller's context is not used: the request may finish before the mail does.
type DirectDispatcher struct {
	service *NotifyService
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDirectDispatcher creates a dispatcher that sends through service.
func NewDirectDispatcher(service *NotifyService, timeout time.Duration) *DirectDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &DirectDispatcher{service: service, timeout: timeout}
}

// Dispatch schedules the send and returns immediately. Failures are logged only.
func (d *DirectDispatcher) Dispatch(_ context.Context, c notification.OrderConfirmation) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.service.SendConfirmation(ctx, c); err != nil {
			slog.Error("Failed to send order confirmation", "order_id", c.OrderID, "error", err)
		}
	}()
}

// Wait blocks until in-flight sends finish or ctx expires.
func (d *DirectDispatcher) Wait(ctx context.Context) error {
	return waitGroup(ctx, &d.wg)
}

type publisher interface {
	PublishJSON(queue string, body []byte) error
}

// QueueDispatcher hands confirmations to a message queue consumed by the mail consumer.
// Publishing happens off the caller's goroutine and is abandoned after timeout.
type QueueDispatcher struct {
	publisher publisher
	queue     string
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewQueueDispatcher creates a dispatcher publishing to queue.
func NewQueueDispatcher(p publisher, queue string, timeout time.Duration) *QueueDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &QueueDispatcher{publisher: p, queue: queue, timeout: timeout}
}

// Dispatch schedules the publish and returns immediately. Failures are logged only.
func (d *QueueDispatcher) Dispatch(_ context.Context, c notification.OrderConfirmation) {
	body, err := json.Marshal(c)
	if err != nil {
		slog.Error("Failed to encode order confirmation", "order_id", c.OrderID, "error", err)

		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		published := make(chan error, 1)
		go func() {
			published <- d.publisher.PublishJSON(d.queue, body)
		}()

		timer := time.NewTimer(d.timeout)
		defer timer.Stop()

		select {
		case err := <-published:
			if err != nil {
				slog.Error("Failed to publish order confirmation", "order_id", c.OrderID, "queue", d.queue, "error", err)

				return
			}
			slog.Info("Order confirmation queued", "order_id", c.OrderID, "queue", d.queue)
		case <-timer.C:
			slog.Error("Publishing order confirmation timed out", "order_id", c.OrderID, "queue", d.queue, "timeout", d.timeout)
		}
	}()
}

// Wait blocks until in-flight publishes finish or ctx expires.
func (d *QueueDispatcher) Wait(ctx context.Context) error {
	return waitGroup(ctx, &d.wg)
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
