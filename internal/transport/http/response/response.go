// Package response writes JSON bodies and maps service errors onto HTTP statuses.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/noelbox/storefront/internal/service/errs"
)

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Type  string `json:"type,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}

// Error writes err with the status of its class. Messages of 5xx errors are not shown.
func Error(w http.ResponseWriter, err error) {
	var gwErr *errs.GatewayError
	if errors.As(err, &gwErr) {
		Gateway(w, gwErr, false)

		return
	}

	switch {
	case errors.Is(err, errs.ErrValidation):
		JSON(w, http.StatusBadRequest, ErrorBody{Error: message(err, errs.ErrValidation)})
	case errors.Is(err, errs.ErrNotConfigured):
		JSON(w, http.StatusBadRequest, ErrorBody{Error: message(err, errs.ErrNotConfigured)})
	case errors.Is(err, errs.ErrAuthentication):
		JSON(w, http.StatusBadRequest, ErrorBody{Error: message(err, errs.ErrAuthentication)})
	case errors.Is(err, errs.ErrSignature):
		JSON(w, http.StatusBadRequest, ErrorBody{Error: "Signature verification failed"})
	case errors.Is(err, errs.ErrNotFound):
		JSON(w, http.StatusNotFound, ErrorBody{Error: message(err, errs.ErrNotFound)})
	default:
		slog.Error("Internal error", "error", err)
		JSON(w, http.StatusInternalServerError, ErrorBody{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

// Gateway writes a payment gateway failure. The upstream code and type are only
// included when expose is set.
func Gateway(w http.ResponseWriter, err *errs.GatewayError, expose bool) {
	status := err.HTTPStatus
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}

	body := ErrorBody{Error: "Payment provider error"}
	if expose {
		body = ErrorBody{Error: err.Message, Code: err.Code, Type: err.Type}
		if body.Error == "" {
			body.Error = err.Error()
		}
	}

	JSON(w, status, body)
}

// message strips the sentinel prefix so only the client-facing text remains.
func message(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
