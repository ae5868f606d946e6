package ordersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/noelbox/storefront/internal/service/errs"
	"github.com/noelbox/storefront/internal/service/models/currency"
	"github.com/noelbox/storefront/internal/service/models/notification"
	"github.com/noelbox/storefront/internal/service/models/order"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const defaultPaymentStatus = "paid"

// WebhookResult describes how an acknowledged event was handled.
type WebhookResult struct {
	EventID   string
	EventType string
	// Handle is the stored record, empty for ignored events.
	Handle  string
	Ignored bool
}

// checkoutSession is the subset of a completed checkout session that is kept.
// Every field is optional on the wire.
type checkoutSession struct {
	ID              string             `json:"id"`
	AmountTotal     *int64             `json:"amount_total"`
	Currency        *string            `json:"currency"`
	PaymentStatus   *string            `json:"payment_status"`
	Metadata        map[string]string  `json:"metadata"`
	CustomerEmail   *string            `json:"customer_email"`
	CustomerDetails *sessionCustomer   `json:"customer_details"`
	ShippingDetails *sessionShipping   `json:"shipping_details"`
	Collected       *sessionCollection `json:"collected_information"`
}

type sessionAddress struct {
	City       *string `json:"city"`
	Country    *string `json:"country"`
	Line1      *string `json:"line1"`
	Line2      *string `json:"line2"`
	PostalCode *string `json:"postal_code"`
	State      *string `json:"state"`
}

type sessionCustomer struct {
	Email   *string         `json:"email"`
	Name    *string         `json:"name"`
	Phone   *string         `json:"phone"`
	Address *sessionAddress `json:"address"`
}

type sessionShipping struct {
	Name    *string         `json:"name"`
	Address *sessionAddress `json:"address"`
}

type sessionCollection struct {
	ShippingDetails *sessionShipping `json:"shipping_details"`
}

// HandleWebhook verifies and processes one payment processor event.
//
// The signature is checked against the exact payload bytes before anything is parsed.
// Events other than a completed checkout are acknowledged without side effects.
// A completed checkout is stored, then a confirmation is dispatched without waiting on it.
func (s *OrderService) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.HandleWebhook")
	defer span.End()

	if signature == "" || s.webhookSecret == "" {
		return WebhookResult{}, fmt.Errorf("%w: missing signature or secret", errs.ErrAuthentication)
	}

	if err := webhook.ValidatePayloadWithTolerance(payload, signature, s.webhookSecret, s.tolerance); err != nil {
		slog.Warn("Webhook signature rejected", "error", err)

		return WebhookResult{}, fmt.Errorf("%w: %s", errs.ErrSignature, err.Error())
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return WebhookResult{}, errs.Validation("malformed event: %s", err.Error())
	}

	result := WebhookResult{EventID: event.ID, EventType: string(event.Type)}
	span.SetAttributes(attribute.String("event.id", event.ID), attribute.String("event.type", result.EventType))

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		result.Ignored = true
		slog.Debug("Webhook event ignored", "event_id", event.ID, "type", event.Type)

		return result, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return WebhookResult{}, errs.Validation("event %s has no data object", event.ID)
	}

	var session checkoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return WebhookResult{}, errs.Validation("malformed checkout session: %s", err.Error())
	}

	o := s.normalize(&session)

	handle, err := s.orderRepo.Append(ctx, o)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to persist order", "order_id", o.ID, "error", err)

		return WebhookResult{}, storageErr("append order", err)
	}
	result.Handle = handle

	slog.Info("Order stored",
		"order_id", o.ID,
		"handle", handle,
		"amount_total", o.AmountTotal,
		"currency", o.Currency,
	)

	if s.notifier != nil && o.EmailOrEmpty() != "" {
		s.notifier.Dispatch(ctx, notification.FromOrder(&o))
	}

	return result, nil
}

// normalize flattens a checkout session into an order. Nested objects are copied
// field by field so unexpected processor data is never stored.
func (s *OrderService) normalize(session *checkoutSession) order.Order {
	o := order.Order{
		ID:            session.ID,
		Date:          order.FormatDate(s.now()),
		AmountTotal:   0,
		Currency:      string(currency.Default),
		Metadata:      map[string]string{},
		PaymentStatus: defaultPaymentStatus,
		Processed:     false,
	}

	if session.AmountTotal != nil {
		o.AmountTotal = *session.AmountTotal
	}
	if session.Currency != nil && *session.Currency != "" {
		o.Currency = strings.ToLower(*session.Currency)
	}
	if session.PaymentStatus != nil && *session.PaymentStatus != "" {
		o.PaymentStatus = *session.PaymentStatus
	}
	for k, v := range session.Metadata {
		o.Metadata[k] = v
	}

	if c := session.CustomerDetails; c != nil {
		o.Email = nonEmpty(c.Email)
		o.CustomerDetails = &order.CustomerDetails{
			Email:   nonEmpty(c.Email),
			Name:    nonEmpty(c.Name),
			Phone:   nonEmpty(c.Phone),
			Address: copyAddress(c.Address),
		}
	}
	if o.Email == nil {
		o.Email = nonEmpty(session.CustomerEmail)
	}

	shipping := session.ShippingDetails
	if shipping == nil && session.Collected != nil {
		shipping = session.Collected.ShippingDetails
	}
	if shipping != nil {
		o.ShippingDetails = &order.ShippingDetails{
			Name:    nonEmpty(shipping.Name),
			Address: copyAddress(shipping.Address),
		}
	}

	return o
}

func copyAddress(a *sessionAddress) *order.Address {
	if a == nil {
		return nil
	}

	return &order.Address{
		City:       nonEmpty(a.City),
		Country:    nonEmpty(a.Country),
		Line1:      nonEmpty(a.Line1),
		Line2:      nonEmpty(a.Line2),
		PostalCode: nonEmpty(a.PostalCode),
		State:      nonEmpty(a.State),
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s

	return &v
}
