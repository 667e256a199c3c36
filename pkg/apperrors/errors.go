package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the error type crossing component boundaries. Code is a stable
// reason identifier suitable for wire acknowledgments; Status is the HTTP
// mapping used by REST handlers.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Reason codes for the dispatch core. These are the terminal acknowledgment
// codes a connection can receive; they must stay stable across releases.
const (
	CodeInvalidCoordinates = "INVALID_COORDINATES"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeAlreadyResolved    = "ALREADY_RESOLVED"
	CodeTransient          = "TRANSIENT"
	CodeBadRequest         = "BAD_REQUEST"
	CodeInternal           = "INTERNAL_ERROR"
)

// InvalidCoordinates reports a malformed location payload. Not retryable.
func InvalidCoordinates(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidCoordinates,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NotFound reports an unknown delivery, driver or offer.
func NotFound(message string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

// Unauthorized reports a sender lacking entitlement. The connection is kept
// open; only the request is refused.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// AlreadyResolved reports a lost acceptance race or a decision made before
// the caller's request arrived. Informational rather than a fault.
func AlreadyResolved(message string) *AppError {
	return &AppError{
		Code:    CodeAlreadyResolved,
		Message: message,
		Status:  http.StatusConflict,
	}
}

// Transient reports a downstream store or cache failure. The caller may retry
// with a bound; the component that produced it does not retry internally.
func Transient(message string, err error) *AppError {
	return &AppError{
		Code:    CodeTransient,
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// BadRequest creates a 400 error for malformed payloads outside the
// coordinate-validation path.
func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// Internal creates a 500 error
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Domain-specific errors

var (
	ErrDriverNotFound   = NotFound("Driver not found", nil)
	ErrDeliveryNotFound = NotFound("Delivery not found", nil)
	ErrOfferNotFound    = NotFound("Offer not found", nil)

	ErrOfferResolved      = AlreadyResolved("Offer already resolved")
	ErrNotACandidate      = Unauthorized("Driver is not a candidate for this offer")
	ErrNotAssignedDriver  = Unauthorized("Sender is not the delivery's assigned driver")
	ErrNotDeliveryViewer  = Unauthorized("Sender is not entitled to track this delivery")
	ErrNoDriversAvailable = NotFound("No drivers available in the area", nil)
)

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError attempts to convert an error to AppError, falling back to a
// generic internal error so handlers always have a code to report.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err carries the given reason code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
