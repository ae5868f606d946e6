// Package stripeclient wraps the Stripe API calls the storefront makes.
package stripeclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/noelbox/storefront/internal/service/errs"
	"github.com/sony/gobreaker/v2"
	"github.com/spf13/viper"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// Config configures the Stripe client.
type Config struct {
	SecretKey string
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	// CallTimeout bounds a whole call, retries included. Keep it under the HTTP server write timeout.
	CallTimeout       time.Duration
	MaxNetworkRetries int64
	// BreakerFailures is the number of consecutive gateway failures that opens the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
	// APIURL overrides the Stripe API base URL. Empty means the real API.
	APIURL string
}

// SessionRequest describes a hosted checkout session with a single line item.
type SessionRequest struct {
	PriceID    string
	Quantity   int64
	Locale     string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Session is the part of a created checkout session the storefront uses.
type Session struct {
	ID  string
	URL string
}

// Client is a process-wide Stripe client. Create it once and share it.
type Client struct {
	api         *client.API
	breaker     *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	callTimeout time.Duration
}

// MustNewClient creates a client from viper configuration.
func MustNewClient() *Client {
	key := viper.GetString("stripe.secret_key")
	if key == "" {
		slog.Warn("Stripe secret key is not set, checkout sessions will fail")
	}

	return NewClient(Config{
		SecretKey:         key,
		Timeout:           viper.GetDuration("stripe.timeout"),
		CallTimeout:       viper.GetDuration("stripe.call_timeout"),
		MaxNetworkRetries: viper.GetInt64("stripe.max_network_retries"),
		BreakerFailures:   viper.GetUint32("stripe.breaker.failures"),
		BreakerCooldown:   viper.GetDuration("stripe.breaker.cooldown"),
		APIURL:            viper.GetString("stripe.api_url"),
	})
}

// NewClient creates a client. Transient network failures are retried by the SDK
// up to MaxNetworkRetries times; API errors are never retried.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 40 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	api := client.New(cfg.SecretKey, stripe.NewBackendsWithConfig(backendCfg))

	breaker := gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
		Name:    "stripe-checkout",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: countsAsHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{api: api, breaker: breaker, callTimeout: cfg.CallTimeout}
}

// CreateCheckoutSession creates a hosted payment session and returns its redirect URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	ctx, span := otel.Tracer("dal").Start(ctx, "Stripe.CreateCheckoutSession")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:                stripe.String(string(stripe.CheckoutSessionModePayment)),
		AllowPromotionCodes: stripe.Bool(true),
		Locale:              stripe.String(req.Locale),
		SuccessURL:          stripe.String(req.SuccessURL),
		CancelURL:           stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(req.Quantity),
			},
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	session, err := c.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		session, err := c.api.CheckoutSessions.New(params)
		if err != nil && errors.Is(ctx.Err(), context.Canceled) && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %w", context.Canceled, err)
		}

		return session, err
	})
	if err != nil {
		span.RecordError(err)

		return Session{}, toGatewayError(err)
	}

	return Session{ID: session.ID, URL: session.URL}, nil
}

// countsAsHealthy keeps client-side mistakes (bad price, bad params) and callers
// that hung up from tripping the breaker.
func countsAsHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Type == stripe.ErrorTypeInvalidRequest || stripeErr.Type == stripe.ErrorTypeCard
	}

	return false
}

func toGatewayError(err error) *errs.GatewayError {
	var stripeErr *stripe.Error
	switch {
	case errors.As(err, &stripeErr):
		return &errs.GatewayError{
			HTTPStatus: stripeErr.HTTPStatusCode,
			Code:       string(stripeErr.Code),
			Type:       string(stripeErr.Type),
			Message:    stripeErr.Msg,
			Err:        err,
		}
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &errs.GatewayError{
			HTTPStatus: http.StatusServiceUnavailable,
			Type:       "circuit_open",
			Message:    "payment gateway temporarily unavailable",
			Err:        err,
		}
	default:
		return &errs.GatewayError{Message: err.Error(), Err: err}
	}
}
