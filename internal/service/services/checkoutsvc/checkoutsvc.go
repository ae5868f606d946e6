package checkoutsvc

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	stripeclient "github.com/noelbox/storefront/internal/dal/stripe"
	"github.com/noelbox/storefront/internal/service/errs"
	"github.com/noelbox/storefront/internal/service/models/catalog"
	"github.com/noelbox/storefront/internal/service/models/order"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultOrigin is used when the configured site URL is missing or malformed.
	DefaultOrigin = "https://www.noelbox.fr"
	// DefaultLocale is the checkout page language.
	DefaultLocale = "fr"

	MinQty = 1
	MaxQty = 5
)

var validate = validator.New()

// Request is a checkout initiation for one variant.
type Request struct {
	VariantID string `validate:"required"`
	Qty       int    `validate:"min=1,max=5"`
}

// Validate checks the request shape.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errs.Validation("variantId is required and qty must be an integer between %d and %d", MinQty, MaxQty)
	}

	return nil
}

type gateway interface {
	CreateCheckoutSession(ctx context.Context, req stripeclient.SessionRequest) (stripeclient.Session, error)
}

// CheckoutService turns a variant choice into a hosted payment session.
type CheckoutService struct {
	gateway gateway
	catalog *catalog.Catalog
	origin  string
	locale  string
}

// option is a function that configures the CheckoutService.
type option func(*CheckoutService)

// MustNewCheckoutService creates a new CheckoutService.
func MustNewCheckoutService(opts ...option) *CheckoutService {
	s := &CheckoutService{
		catalog: &catalog.Catalog{},
		origin:  DefaultOrigin,
		locale:  DefaultLocale,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gateway == nil {
		panic("checkoutsvc: payment gateway is required")
	}

	return s
}

// WithGateway sets the payment gateway client.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithGateway(g gateway) option {
	return func(s *CheckoutService) {
		s.gateway = g
	}
}

// WithCatalog sets the variant catalog.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCatalog(c *catalog.Catalog) option {
	return func(s *CheckoutService) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithSiteURL sets the public site URL the processor redirects back to.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSiteURL(raw string) option {
	return func(s *CheckoutService) {
		s.origin = NormalizeOrigin(raw)
	}
}

// WithLocale sets the checkout page locale.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLocale(locale string) option {
	return func(s *CheckoutService) {
		if locale != "" {
			s.locale = locale
		}
	}
}

// Origin returns the normalized site origin.
func (s *CheckoutService) Origin() string {
	return s.origin
}

// CreateSession validates the request, resolves the variant and returns the processor redirect URL.
func (s *CheckoutService) CreateSession(ctx context.Context, req Request) (string, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "CheckoutService.CreateSession")
	defer span.End()

	if err := req.Validate(); err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("variant.id", req.VariantID), attribute.Int("qty", req.Qty))

	variant, ok := s.catalog.Lookup(req.VariantID)
	if !ok || !variant.Purchasable() {
		return "", errs.NotConfigured("Produit introuvable ou non configuré")
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, stripeclient.SessionRequest{
		PriceID:    variant.StripePriceID,
		Quantity:   int64(req.Qty),
		Locale:     s.locale,
		SuccessURL: s.origin + "/merci?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.origin,
		Metadata: map[string]string{
			order.MetaVariantID:    variant.ID,
			order.MetaVariantLabel: variant.Label,
			order.MetaQty:          strconv.Itoa(req.Qty),
		},
	})
	if err != nil {
		slog.Error("Failed to create checkout session", "variant_id", variant.ID, "error", err)

		return "", err
	}
	if session.URL == "" {
		return "", &errs.GatewayError{Message: "checkout session " + session.ID + " has no redirect URL"}
	}

	slog.Info("Checkout session created", "session_id", session.ID, "variant_id", variant.ID, "qty", req.Qty)

	return session.URL, nil
}

// NormalizeOrigin reduces a site URL to scheme://host, falling back to DefaultOrigin.
func NormalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return DefaultOrigin
	}

	return u.Scheme + "://" + u.Host
}
