// Package errors defines the error taxonomy shared by every layer of
// the gateway. Each error carries a Kind from a closed set so the
// response builder can map it to an HTTP status without inspecting
// message text.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes a gateway error.
type Kind string

const (
	KindInvalidFilter          Kind = "INVALID_FILTER"
	KindFilterValidationFailed Kind = "FILTER_VALIDATION_FAILED"
	KindSchemaValidationFailed Kind = "SCHEMA_VALIDATION_FAILED"
	KindMethodNotAllowed       Kind = "METHOD_NOT_ALLOWED"
	KindEndpointNotFound       Kind = "ENDPOINT_NOT_FOUND"
	KindEnvironmentMismatch    Kind = "ENVIRONMENT_MISMATCH"
	KindSubEntityConflict      Kind = "SUB_ENTITY_CONFLICT"
	KindConfigMissing          Kind = "CONFIG_MISSING"
	KindBackendUnavailable     Kind = "BACKEND_UNAVAILABLE"
	KindInternal               Kind = "INTERNAL"
)

// GatewayError is the custom error type used across the gateway.
type GatewayError struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is and errors.As to work.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// New creates a GatewayError of the given kind.
func New(kind Kind, message string) error {
	return &GatewayError{Kind: kind, Message: message}
}

// NewWithDetails creates a GatewayError carrying per-item details,
// typically one entry per accumulated validation failure.
func NewWithDetails(kind Kind, message string, details []string) error {
	return &GatewayError{Kind: kind, Message: message, Details: details}
}

// Wrap wraps an error with additional context, preserving the kind of
// an existing GatewayError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return &GatewayError{
			Kind:    ge.Kind,
			Message: fmt.Sprintf("%s: %s", message, ge.Message),
			Details: ge.Details,
			Err:     ge.Err,
		}
	}
	return &GatewayError{Kind: KindInternal, Message: message, Err: err}
}

// Internal wraps an unexpected error.
func Internal(message string, err error) error {
	return &GatewayError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not a
// GatewayError.
func KindOf(err error) Kind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err: the bare
// Message of a GatewayError, without kind or cause.
func MessageOf(err error) string {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Message
	}
	return "internal server error"
}

// DetailsOf returns the accumulated details of err, if any.
func DetailsOf(err error) []string {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Details
	}
	return nil
}

// IsKind reports whether err is a GatewayError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == kind
}

func IsInvalidFilter(err error) bool       { return IsKind(err, KindInvalidFilter) }
func IsValidationFailed(err error) bool    { return IsKind(err, KindFilterValidationFailed) }
func IsSchemaValidation(err error) bool    { return IsKind(err, KindSchemaValidationFailed) }
func IsMethodNotAllowed(err error) bool    { return IsKind(err, KindMethodNotAllowed) }
func IsEndpointNotFound(err error) bool    { return IsKind(err, KindEndpointNotFound) }
func IsEnvironmentMismatch(err error) bool { return IsKind(err, KindEnvironmentMismatch) }
func IsSubEntityConflict(err error) bool   { return IsKind(err, KindSubEntityConflict) }
func IsConfigMissing(err error) bool       { return IsKind(err, KindConfigMissing) }
func IsBackendUnavailable(err error) bool  { return IsKind(err, KindBackendUnavailable) }
