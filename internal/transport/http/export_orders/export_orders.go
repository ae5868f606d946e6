package exportorders

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/noelbox/storefront/internal/transport/http/response"
)

// service is an interface for the service layer.
type service interface {
	ExportCSV(ctx context.Context) (string, error)
}

// ExportOrders streams every stored order as a CSV attachment.
func ExportOrders(w http.ResponseWriter, r *http.Request, service service) {
	csv, err := service.ExportCSV(r.Context())
	if err != nil {
		response.Error(w, err)

		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, csv); err != nil {
		slog.Error("Error writing orders export", "error", err)
	}
}
