package types

import (
	"errors"
	"net/http"
)

// ClientError is an error the originating client caused and can act on.
// It carries the HTTP-equivalent status class used at the transport boundary.
// ARCHITECTURAL DISCOVERY: One error type for the whole client-facing taxonomy
// keeps status mapping in a single place instead of per-handler switch blocks.
type ClientError struct {
	Status  int
	Message string
}

func (e *ClientError) Error() string {
	return e.Message
}

// Taxonomy instances shared across the gateway. Everything above Transient is
// produced locally and converted to a status + generic message at the boundary.
var (
	ErrNoConnectionHandle = &ClientError{Status: http.StatusBadRequest, Message: "Missing connection handle"}
	ErrUnauthenticated    = &ClientError{Status: http.StatusUnauthorized, Message: "Authentication required"}
	ErrRestricted         = &ClientError{Status: http.StatusForbidden, Message: "Your account is restricted from live interactions"}
	ErrRateLimited        = &ClientError{Status: http.StatusTooManyRequests, Message: "Too many messages, slow down"}
	ErrModerationRejected = &ClientError{Status: http.StatusBadRequest, Message: "Your comment violates community guidelines"}
)

// NewValidationError builds a 400-class error naming the failed condition.
func NewValidationError(message string) *ClientError {
	return &ClientError{Status: http.StatusBadRequest, Message: message}
}

// IsClientError reports whether err belongs to the client-facing taxonomy.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// StatusFor maps any error to its client-facing status class.
// FUNCTIONAL DISCOVERY: Unrecognized errors collapse to 500 so transient
// store or transport failures never leak internal detail to the client.
func StatusFor(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return http.StatusInternalServerError
}

// MessageFor maps any error to the message safe to echo to the client.
func MessageFor(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return "Internal server error"
}
