package listorders

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/noelbox/storefront/internal/service/errs"
	"github.com/noelbox/storefront/internal/service/models/currency"
	"github.com/noelbox/storefront/internal/service/models/order"
	"github.com/noelbox/storefront/internal/transport/http/response"
)

// service is an interface for the service layer.
type service interface {
	ListOrders(ctx context.Context, query order.QueryOrdersModel) ([]order.StoredOrder, error)
}

type listOrdersRequest struct {
	Status string `schema:"status,omitempty"`
}

func (q *listOrdersRequest) ToModel() order.QueryOrdersModel {
	return order.QueryOrdersModel{
		Status: order.Status(q.Status),
	}
}

// orderInListResponse is one row of the admin listing.
type orderInListResponse struct {
	Handle      string      `json:"handle"`
	Order       order.Order `json:"order"`
	AmountLabel string      `json:"amountLabel"`
}

// toResponse converts stored orders to the listing rows.
func toResponse(items []order.StoredOrder) []orderInListResponse {
	rows := make([]orderInListResponse, 0, len(items))
	for _, item := range items {
		cur, err := currency.ParseCurrency(item.Order.Currency)
		if err != nil {
			cur = currency.Default
		}
		rows = append(rows, orderInListResponse{
			Handle:      item.Handle,
			Order:       item.Order,
			AmountLabel: cur.FormatMinor(item.Order.AmountTotal),
		})
	}

	return rows
}

// ListOrders handles the admin listing, filtered by the status query parameter.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &listOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		slog.Error("Error decoding request", "error", err)
		response.Error(w, errs.Validation("%s", err.Error()))

		return
	}

	items, err := service.ListOrders(r.Context(), query.ToModel())
	if err != nil {
		response.Error(w, err)

		return
	}

	w.Header().Set("Cache-Control", "no-store")
	response.JSON(w, http.StatusOK, toResponse(items))
}
