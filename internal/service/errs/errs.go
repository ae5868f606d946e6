// Package errs holds the error taxonomy shared by services and transports.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad client input. Always safe to show.
	ErrValidation = errors.New("validation error")
	// ErrAuthentication marks a request missing its credentials.
	ErrAuthentication = errors.New("authentication error")
	// ErrSignature marks a webhook payload whose signature does not verify.
	ErrSignature = errors.New("signature error")
	// ErrNotConfigured marks missing catalog or pricing wiring.
	ErrNotConfigured = errors.New("not configured")
	// ErrNotFound marks an unknown order handle.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks a persistence failure. Callers must answer with a 5xx.
	ErrStorage = errors.New("storage error")
)

// Validation wraps ErrValidation with a client-facing message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotConfigured wraps ErrNotConfigured with a client-facing message.
func NotConfigured(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotConfigured, fmt.Sprintf(format, args...))
}

// Storage wraps err with ErrStorage.
func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// GatewayError is returned when the payment processor rejects or fails a call.
type GatewayError struct {
	// HTTPStatus is the processor's status code, 0 when the call never got a response.
	HTTPStatus int
	Code       string
	Type       string
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment gateway error (%s/%s): %s", e.Type, e.Code, e.Message)
	}

	return "payment gateway error: " + e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
