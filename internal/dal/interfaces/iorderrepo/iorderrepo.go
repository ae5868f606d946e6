package iorderrepo

import (
	"context"

	"github.com/noelbox/storefront/internal/service/models/order"
)

// IOrderRepository is the order store contract. Callers never see how records are laid out.
type IOrderRepository interface {
	// Append persists a new order and returns its handle.
	Append(ctx context.Context, o order.Order) (string, error)
	// List returns stored orders newest-first, skipping unreadable records.
	List(ctx context.Context, filter order.QueryOrdersModel) ([]order.StoredOrder, error)
	// SetProcessed rewrites the processed flag of one record.
	SetProcessed(ctx context.Context, handle string, processed bool) (order.Order, error)
	// ExportCSV projects every stored order into CSV text.
	ExportCSV(ctx context.Context) (string, error)
}
