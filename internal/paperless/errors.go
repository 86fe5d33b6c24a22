// SPDX-License-Identifier: MIT

package paperless

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound            = errors.New("paperless: object not found")
	ErrAmbiguous           = errors.New("paperless: more than one object matches")
	ErrUnauthorized        = errors.New("paperless: authentication rejected")
	ErrUpstreamUnavailable = errors.New("paperless: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("paperless: request rejected")
	ErrBadResponse         = errors.New("paperless: invalid response format or malformed data")
	ErrInvalidPath         = errors.New("paperless: path outside of the API root")
	ErrSessionClosed       = errors.New("paperless: session closed")
)

// maxErrorBody bounds the response body kept in an APIError.
const maxErrorBody = 512

// APIError wraps a sentinel with the request context it happened in.
type APIError struct {
	Sentinel  error
	Operation string // e.g. "GET /api/tags/"
	Status    int
	Body      string
	Err       error // lower-level cause, e.g. a net.Error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// sentinelForStatus maps a non-2xx status code to its sentinel.
func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrUpstreamError
	}
}

// countsAsOutage reports whether err indicates the server is unhealthy, as
// opposed to a request it rejected. Only outages trip the circuit breaker.
func countsAsOutage(err error) bool {
	if errors.Is(err, ErrUpstreamUnavailable) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= http.StatusInternalServerError
}
