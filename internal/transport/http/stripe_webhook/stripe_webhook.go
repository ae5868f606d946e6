package stripewebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/noelbox/storefront/internal/service/errs"
	"github.com/noelbox/storefront/internal/service/services/ordersvc"
	"github.com/noelbox/storefront/internal/transport/http/response"
)

// SignatureHeader carries the processor's payload signature.
const SignatureHeader = "Stripe-Signature"

// maxBodyBytes caps the payload; processor events are far smaller.
const maxBodyBytes = 1 << 20

// service is an interface for the service layer.
type service interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (ordersvc.WebhookResult, error)
}

type receivedResponse struct {
	Received bool `json:"received"`
}

// HandleWebhook reads the raw body and hands it to the service unparsed, since the
// signature covers the exact bytes.
func HandleWebhook(w http.ResponseWriter, r *http.Request, service service) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		slog.Warn("Error reading webhook body", "error", err)
		response.Error(w, errs.Validation("unreadable body"))

		return
	}

	result, err := service.HandleWebhook(r.Context(), payload, r.Header.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, errs.ErrStorage) {
			slog.Error("Error persisting webhook order", "error", err)
			response.JSON(w, http.StatusInternalServerError, response.ErrorBody{Error: "Failed to persist order"})

			return
		}
		response.Error(w, err)

		return
	}

	slog.Debug("Webhook acknowledged", "event_id", result.EventID, "type", result.EventType, "ignored", result.Ignored)
	response.JSON(w, http.StatusOK, receivedResponse{Received: true})
}
