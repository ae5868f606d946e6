package checkoutsvc

import (
	"context"
	"errors"
	"testing"

	stripeclient "github.com/noelbox/storefront/internal/dal/stripe"
	"github.com/noelbox/storefront/internal/service/errs"
	"github.com/noelbox/storefront/internal/service/models/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGateway records session requests.
type mockGateway struct {
	calls   []stripeclient.SessionRequest
	session stripeclient.Session
	err     error
}

func (m *mockGateway) CreateCheckoutSession(_ context.Context, req stripeclient.SessionRequest) (stripeclient.Session, error) {
	m.calls = append(m.calls, req)
	if m.err != nil {
		return stripeclient.Session{}, m.err
	}

	return m.session, nil
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Currency: "eur",
		Variants: []catalog.Variant{
			{ID: "v1", Label: "Sapin", PriceCents: 1990, StripePriceID: "price_sapin"},
			{ID: "v2", Label: "Etoile", PriceCents: 1990},
		},
	}
}

func newService(gw *mockGateway, siteURL string) *CheckoutService {
	return MustNewCheckoutService(
		WithGateway(gw),
		WithCatalog(testCatalog()),
		WithSiteURL(siteURL),
	)
}

func TestCreateSession_ValidQuantitiesReturnURL(t *testing.T) {
	for qty := MinQty; qty <= MaxQty; qty++ {
		gw := &mockGateway{session: stripeclient.Session{ID: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}}
		svc := newService(gw, "https://shop.example/some/path?x=1")

		url, err := svc.CreateSession(context.Background(), Request{VariantID: "v1", Qty: qty})

		require.NoError(t, err)
		assert.NotEmpty(t, url)
		require.Len(t, gw.calls, 1)
		call := gw.calls[0]
		assert.Equal(t, "price_sapin", call.PriceID)
		assert.EqualValues(t, qty, call.Quantity)
		assert.Equal(t, "fr", call.Locale)
		assert.Equal(t, "https://shop.example/merci?session_id={CHECKOUT_SESSION_ID}", call.SuccessURL)
		assert.Equal(t, "https://shop.example", call.CancelURL)
		assert.Equal(t, map[string]string{"variantId": "v1", "variantLabel": "Sapin", "qty": string(rune('0' + qty))}, call.Metadata)
	}
}

func TestCreateSession_InvalidInputMakesNoGatewayCall(t *testing.T) {
	for _, req := range []Request{
		{VariantID: "v1", Qty: 0},
		{VariantID: "v1", Qty: 6},
		{VariantID: "v1", Qty: -1},
		{VariantID: "", Qty: 1},
	} {
		gw := &mockGateway{}
		svc := newService(gw, "")

		_, err := svc.CreateSession(context.Background(), req)

		assert.ErrorIs(t, err, errs.ErrValidation)
		assert.Empty(t, gw.calls)
	}
}

func TestCreateSession_UnknownOrUnpricedVariant(t *testing.T) {
	for _, id := range []string{"nope", "v2"} {
		gw := &mockGateway{}
		svc := newService(gw, "")

		_, err := svc.CreateSession(context.Background(), Request{VariantID: id, Qty: 1})

		assert.ErrorIs(t, err, errs.ErrNotConfigured)
		assert.Empty(t, gw.calls)
	}
}

func TestCreateSession_GatewayErrorPassesThrough(t *testing.T) {
	gwErr := &errs.GatewayError{HTTPStatus: 400, Code: "resource_missing", Type: "invalid_request_error"}
	svc := newService(&mockGateway{err: gwErr}, "")

	_, err := svc.CreateSession(context.Background(), Request{VariantID: "v1", Qty: 1})

	var got *errs.GatewayError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "resource_missing", got.Code)
}

func TestCreateSession_EmptySessionURLIsGatewayError(t *testing.T) {
	svc := newService(&mockGateway{session: stripeclient.Session{ID: "cs_1"}}, "")

	_, err := svc.CreateSession(context.Background(), Request{VariantID: "v1", Qty: 1})

	var got *errs.GatewayError
	assert.True(t, errors.As(err, &got))
}

func TestNormalizeOrigin(t *testing.T) {
	tests := map[string]string{
		"":                            DefaultOrigin,
		"not a url":                   DefaultOrigin,
		"ftp://shop.example":          DefaultOrigin,
		"https://":                    DefaultOrigin,
		"https://shop.example":        "https://shop.example",
		"https://shop.example/":       "https://shop.example",
		" http://localhost:3000/x?y ": "http://localhost:3000",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizeOrigin(in), in)
	}
}

func TestMustNewCheckoutService_RequiresGateway(t *testing.T) {
	assert.Panics(t, func() { MustNewCheckoutService() })
}
