package booking

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced to calling UIs. The code decides between
// "let the user retry" and "terminal, show alternative action".
const (
	CodeInvalidState         = "invalidState"
	CodeStaleOffer           = "staleOffer"
	CodeStaleVersion         = "staleVersion"
	CodeNoProvidersAvailable = "noProvidersAvailable"
	CodePaymentCaptureFailed = "paymentCaptureFailed"
	CodePaymentWindowExpired = "paymentWindowExpired"
	CodeExternalService      = "externalService"
	CodeNotFound             = "notFound"
	CodeValidation           = "validation"
)

// BookingError carries a stable code plus a human-readable reason.
type BookingError struct {
	Code    string
	Message string
}

func (e *BookingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBookingError builds a coded error with a formatted message.
func NewBookingError(code, format string, args ...interface{}) error {
	return &BookingError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts the stable code from err, or "" for plain errors.
func ErrorCode(err error) string {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}
