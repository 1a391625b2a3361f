package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel error kinds for the document/trial workflow. Services return
// errors wrapping one of these; HTTP handlers map them with Status.
var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotEditable         = errors.New("document is not editable")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrIntegrityViolation  = errors.New("audit integrity violation")
	ErrValidation          = errors.New("validation failed")
)

func InvalidTransition(from, to string) error {
	return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, from, to)
}

func NotEditable(status string) error {
	return fmt.Errorf("%w: status is %s", ErrNotEditable, status)
}

func NotFound(entity string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

func Upstream(service string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, service, err)
}

func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Status returns the HTTP status code for a classified error, or 500 for
// anything unclassified.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotEditable):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, ErrIntegrityViolation):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
