package createcheckout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/noelbox/storefront/internal/service/errs"
	"github.com/noelbox/storefront/internal/service/services/checkoutsvc"
	"github.com/noelbox/storefront/internal/transport/http/response"
)

const maxBodyBytes = 16 << 10

// service is an interface for the service layer.
type service interface {
	CreateSession(ctx context.Context, req checkoutsvc.Request) (string, error)
}

// createCheckoutRequest represents a checkout request. Qty stays a float so that
// 1.5 is reported as a validation error instead of a decoding error.
type createCheckoutRequest struct {
	VariantID string   `json:"variantId"`
	Qty       *float64 `json:"qty"`
}

// toModel converts createCheckoutRequest to checkoutsvc.Request.
func (r *createCheckoutRequest) toModel() (checkoutsvc.Request, error) {
	if r.Qty == nil || *r.Qty != math.Trunc(*r.Qty) ||
		*r.Qty < checkoutsvc.MinQty || *r.Qty > checkoutsvc.MaxQty {
		return checkoutsvc.Request{}, errs.Validation(
			"qty must be an integer between %d and %d", checkoutsvc.MinQty, checkoutsvc.MaxQty,
		)
	}

	return checkoutsvc.Request{VariantID: r.VariantID, Qty: int(*r.Qty)}, nil
}

type createCheckoutResponse struct {
	URL string `json:"url"`
}

// CreateCheckout handles the checkout initiation request.
func CreateCheckout(w http.ResponseWriter, r *http.Request, service service, exposeGatewayErrors bool) {
	req := createCheckoutRequest{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		slog.Warn("Error decoding request body for checkout", "error", err)
		response.Error(w, errs.Validation("invalid request body"))

		return
	}

	model, err := req.toModel()
	if err != nil {
		response.Error(w, err)

		return
	}

	url, err := service.CreateSession(r.Context(), model)
	if err != nil {
		var gwErr *errs.GatewayError
		if errors.As(err, &gwErr) {
			response.Gateway(w, gwErr, exposeGatewayErrors)

			return
		}
		response.Error(w, err)

		return
	}

	response.JSON(w, http.StatusOK, createCheckoutResponse{URL: url})
}
