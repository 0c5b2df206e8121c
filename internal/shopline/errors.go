// errors.go -- Error kinds surfaced by the shopline package.
package shopline

import (
	"errors"
	"fmt"
)

// ErrInvalidSignature is returned when an inbound request's sign does not match its parameters.
var ErrInvalidSignature = errors.New("invalid signature")

// ErrExchangeTimeout marks a token exchange that hit its deadline.
// Always wrapped in a *TransportError.
var ErrExchangeTimeout = errors.New("token exchange timed out")

// ErrMalformedResponse marks a token endpoint reply that could not be interpreted.
// Always wrapped in a *TransportError.
var ErrMalformedResponse = errors.New("malformed token response")

// TransportError reports a token exchange that never produced a usable platform answer:
// network failure, non-2xx status, unparseable body or timeout.
// StatusCode is 0 when no HTTP response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange transport error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("token exchange transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BusinessError is a well-formed platform reply whose code is not the success sentinel,
// e.g. an expired or already used authorization code.
type BusinessError struct {
	Code     int
	I18nCode string
	Message  string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("token exchange rejected by platform: code=%d i18nCode=%q", e.Code, e.I18nCode)
}
