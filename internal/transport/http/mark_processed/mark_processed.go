package markprocessed

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/noelbox/storefront/internal/service/models/order"
	"github.com/noelbox/storefront/internal/transport/http/response"
)

// HandleParam is the route parameter holding the order handle.
const HandleParam = "handle"

// service is an interface for the service layer.
type service interface {
	MarkProcessed(ctx context.Context, handle string) (order.Order, error)
}

// MarkProcessed flags the order addressed by the route handle and returns it.
func MarkProcessed(w http.ResponseWriter, r *http.Request, service service) {
	o, err := service.MarkProcessed(r.Context(), chi.URLParam(r, HandleParam))
	if err != nil {
		response.Error(w, err)

		return
	}

	response.JSON(w, http.StatusOK, order.StoredOrder{Handle: chi.URLParam(r, HandleParam), Order: o})
}
