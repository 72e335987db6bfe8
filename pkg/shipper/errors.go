package shipper

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a carrier failure.
type ErrorKind string

const (
	// KindTransport is a network or HTTP level failure.
	KindTransport ErrorKind = "transport"
	// KindService is a business error reported by the carrier.
	KindService ErrorKind = "service"
)

// ShipperError represents an error from a shipping carrier.
type ShipperError struct {
	Kind       ErrorKind
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *ShipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s error (%s): %s: %v", e.Carrier, e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s error (%s): %s", e.Carrier, e.Kind, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ShipperError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ShipperError.
func (e *ShipperError) Is(target error) bool {
	t, ok := target.(*ShipperError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewTransportError creates a ShipperError for a network or HTTP failure.
// Transport errors are retryable by default.
func NewTransportError(carrier, code, message string) *ShipperError {
	return &ShipperError{
		Kind:      KindTransport,
		Carrier:   carrier,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// NewServiceError creates a ShipperError for a carrier business error.
func NewServiceError(carrier, code, message string) *ShipperError {
	return &ShipperError{
		Kind:    KindService,
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ShipperError) WithCause(err error) *ShipperError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ShipperError) WithStatusCode(code int) *ShipperError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *ShipperError) WithRetryable(retryable bool) *ShipperError {
	e.Retryable = retryable
	return e
}

// AggregateError is returned when every composed carrier failed.
// Errors holds each carrier's failure in registration order.
type AggregateError struct {
	Operation string
	Errors    []error
}

// Error implements the error interface. The message names the first
// carrier failure.
func (e *AggregateError) Error() string {
	switch len(e.Errors) {
	case 0:
		return fmt.Sprintf("%s: %v: no carriers configured", e.Operation, ErrAllCarriersFailed)
	case 1:
		return fmt.Sprintf("%s: %v: %v", e.Operation, ErrAllCarriersFailed, e.Errors[0])
	default:
		return fmt.Sprintf("%s: %v: %v (and %d more)", e.Operation, ErrAllCarriersFailed, e.Errors[0], len(e.Errors)-1)
	}
}

// Unwrap exposes every carrier failure to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Is matches ErrAllCarriersFailed.
func (e *AggregateError) Is(target error) bool {
	return target == ErrAllCarriersFailed
}

// Sentinel errors for common shipping scenarios.
var (
	// ErrInvalidAddress indicates the address is invalid or incomplete.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrServiceUnavailable indicates the carrier service is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrShipmentNotFound indicates the shipment ID was not found.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrTrackingNotFound indicates the carrier does not know the tracking number.
	ErrTrackingNotFound = errors.New("tracking number not found")

	// ErrPickupNotFound indicates the pickup confirmation was not found.
	ErrPickupNotFound = errors.New("pickup not found")

	// ErrCancellationNotAllowed indicates the shipment or pickup cannot be cancelled.
	ErrCancellationNotAllowed = errors.New("cancellation not allowed")

	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRateLimitExceeded indicates the carrier rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidPackage indicates package dimensions or weight are invalid.
	ErrInvalidPackage = errors.New("invalid package")

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrAllCarriersFailed indicates no composed carrier could serve the request.
	ErrAllCarriersFailed = errors.New("all carriers failed")

	// ErrDuplicateCarrier indicates a carrier was named twice in one composite.
	ErrDuplicateCarrier = errors.New("duplicate carrier")
)

// IsTransportError reports whether err is a carrier transport failure.
func IsTransportError(err error) bool {
	var shipperErr *ShipperError
	return errors.As(err, &shipperErr) && shipperErr.Kind == KindTransport
}

// IsServiceError reports whether err is a carrier business error.
func IsServiceError(err error) bool {
	var shipperErr *ShipperError
	return errors.As(err, &shipperErr) && shipperErr.Kind == KindService
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded)
}
