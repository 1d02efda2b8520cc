package adapters

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// ErrorKind is the machine-distinguishable subtype of an adapter failure.
type ErrorKind string

const (
	KindInvalidCredentials   ErrorKind = "invalid_credentials"
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	KindRateLimited          ErrorKind = "rate_limited"
	KindVendorError          ErrorKind = "vendor_error"
)

// Error is the single tagged error type every adapter surfaces. The calling
// layer switches on Kind instead of string-matching messages.
type Error struct {
	Vendor     entities.Source
	Kind       ErrorKind
	Message    string
	StatusCode int           // original vendor HTTP status, when there was one
	RetryAfter time.Duration // rate-limit hint, KindRateLimited only
	cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (%s, status %d)", e.Vendor, e.Message, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Vendor, e.Message, e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the caller may retry the whole sync later.
func (e *Error) Retryable() bool { return e.Kind == KindRateLimited }

func MissingFields(vendor entities.Source, fields []string) *Error {
	return &Error{
		Vendor:  vendor,
		Kind:    KindInvalidCredentials,
		Message: "missing required credential fields: " + strings.Join(fields, ", "),
	}
}

func AuthFailed(vendor entities.Source, status int) *Error {
	return &Error{
		Vendor:     vendor,
		Kind:       KindAuthenticationFailed,
		Message:    "vendor rejected credentials",
		StatusCode: status,
	}
}

func RateLimited(vendor entities.Source, retryAfter time.Duration) *Error {
	return &Error{
		Vendor:     vendor,
		Kind:       KindRateLimited,
		Message:    "vendor throttled the request",
		StatusCode: 429,
		RetryAfter: retryAfter,
	}
}

func VendorFailure(vendor entities.Source, status int, msg string, cause error) *Error {
	return &Error{
		Vendor:     vendor,
		Kind:       KindVendorError,
		Message:    msg,
		StatusCode: status,
		cause:      cause,
	}
}

// AsError unwraps any adapter *Error in the chain.
func AsError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
