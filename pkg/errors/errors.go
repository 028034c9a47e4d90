package relay_errors

import (
	"errors"
	"net/http"
)

// Common errors
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotAuthorized  = errors.New("not authorized")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrTimeExpired    = errors.New("edit window expired")
	ErrAlreadyPinned  = errors.New("already pinned")
	ErrMaxPinsReached = errors.New("max pins reached")
	ErrAlreadyExists  = errors.New("already exists")
	ErrRateLimited    = errors.New("rate limited")
)

// HTTPStatus maps a service error to the status code handlers return.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotAuthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrTimeExpired):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyPinned), errors.Is(err, ErrMaxPinsReached), errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable error code used in HTTP responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrNotAuthorized):
		return "NOT_AUTHORIZED"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrTimeExpired):
		return "TIME_EXPIRED"
	case errors.Is(err, ErrAlreadyPinned):
		return "ALREADY_PINNED"
	case errors.Is(err, ErrMaxPinsReached):
		return "MAX_PINS_REACHED"
	case errors.Is(err, ErrAlreadyExists):
		return "ALREADY_EXISTS"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	default:
		return "INTERNAL_ERROR"
	}
}
