package notifysvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/noelbox/storefront/internal/service/models/notification"
	"go.opentelemetry.io/otel"
)

type mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// NotifyService sends order confirmations. Without a mailer every send is a silent no-op.
type NotifyService struct {
	mailer  mailer
	timeout time.Duration
}

// option is a function that configures the NotifyService.
type option func(*NotifyService)

// MustNewNotifyService creates a new NotifyService.
func MustNewNotifyService(opts ...option) *NotifyService {
	s := &NotifyService{timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithMailer sets the mail transport.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMailer(m mailer) option {
	return func(s *NotifyService) {
		s.mailer = m
	}
}

// WithTimeout bounds a single delivery attempt.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTimeout(d time.Duration) option {
	return func(s *NotifyService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Enabled reports whether confirmations are actually delivered.
func (s *NotifyService) Enabled() bool {
	return s.mailer != nil
}

// SendConfirmation emails the buyer. It returns nil without sending when delivery is
// unconfigured or the order has no email.
func (s *NotifyService) SendConfirmation(ctx context.Context, c notification.OrderConfirmation) error {
	if s.mailer == nil || c.To == "" {
		return nil
	}

	ctx, span := otel.Tracer("service").Start(ctx, "NotifyService.SendConfirmation")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.mailer.Send(ctx, c.To, c.Subject(), c.Text(), c.HTML()); err != nil {
		span.RecordError(err)

		return err
	}

	slog.Info("Order confirmation sent", "order_id", c.OrderID)

	return nil
}
