package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"go-elms/internal/shared/apperror"
)

var (
	ErrNetworkFailure = apperror.New(
		apperror.CodeServiceUnavailable,
		"leave service is unreachable, please retry",
		http.StatusServiceUnavailable,
	)
	ErrUnauthorized = apperror.New(
		apperror.CodeUnauthorized,
		"session is no longer valid, please sign in again",
		http.StatusUnauthorized,
	)
	ErrMalformedResponse = apperror.New(
		apperror.CodeServiceUnavailable,
		"leave service sent an unreadable response",
		http.StatusBadGateway,
	)
)

// StatusError is a non 2xx answer other than 401/403.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("leave api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("leave api: status %d: %s", e.StatusCode, e.Message)
}

// HasStatus reports whether err is a StatusError with the given code.
func HasStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// countsAsFailure decides what trips the breaker: transport errors and 5xx.
// Client errors mean the service is up.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, apperror.ErrForbidden) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return true
}
