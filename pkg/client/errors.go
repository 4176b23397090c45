package client

import (
	"context"
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrCancelled marks an operation stopped by context cancellation.
	ErrCancelled = errors.New("operation cancelled")

	// ErrRequestTimeout marks a request that exceeded its deadline.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrUnauthorized marks a 401: the token is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden marks a 403: the token lacks permission.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a 404 for the requested path or object.
	ErrNotFound = errors.New("not found")

	// ErrHTTP marks any other non-2xx response.
	ErrHTTP = errors.New("http error")

	// ErrConnectionRefused marks a server that refused the TCP connection.
	ErrConnectionRefused = errors.New("connection refused")

	// ErrNetwork marks DNS, TLS and other transport failures.
	ErrNetwork = errors.New("network error")

	// ErrMalformedResponse marks a 2xx body that is not the expected JSON.
	ErrMalformedResponse = errors.New("malformed response")
)

// ErrorKind is the transport failure taxonomy.
type ErrorKind string

const (
	// KindUnauthorized is a 401 response.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindForbidden is a 403 response.
	KindForbidden ErrorKind = "forbidden"
	// KindNotFound is a 404 response.
	KindNotFound ErrorKind = "not_found"
	// KindHTTP is any other non-2xx status.
	KindHTTP ErrorKind = "http"
	// KindTimeout is a request that ran past its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindConnectionRefused is a refused TCP connection.
	KindConnectionRefused ErrorKind = "connection_refused"
	// KindNetwork is any other transport failure.
	KindNetwork ErrorKind = "network"
	// KindMalformed is a successful response with an unparseable body.
	KindMalformed ErrorKind = "malformed_response"
)

// ErrorClass groups failures for retry policy and metrics.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors and bad bodies.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// TransportError describes a failed NetBox request.
type TransportError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	URL        string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	msg := fmt.Sprintf("netbox %s error", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.URL != "" {
		msg += " for " + e.URL
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, e.g. errors.Is(err, ErrNotFound).
func (e *TransportError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *TransportError) sentinel() error {
	switch e.Kind {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindHTTP:
		return ErrHTTP
	case KindTimeout:
		return ErrRequestTimeout
	case KindConnectionRefused:
		return ErrConnectionRefused
	case KindNetwork:
		return ErrNetwork
	case KindMalformed:
		return ErrMalformedResponse
	default:
		return nil
	}
}

// Class returns the retry/metrics class of the error.
func (e *TransportError) Class() ErrorClass {
	switch e.Kind {
	case KindHTTP:
		if e.StatusCode == 429 {
			return ErrorClassRateLimit
		}
		if e.StatusCode >= 500 {
			return ErrorClassServer
		}
		return ErrorClassClient
	case KindTimeout, KindNetwork, KindConnectionRefused:
		return ErrorClassNetwork
	default:
		return ErrorClassClient
	}
}

// IsAuthFailure reports whether err is an unauthorized or forbidden response.
// Credentials cannot be fixed by retrying, so callers treat these as fatal.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCancelled reports whether err stems from cooperative cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// ContextError maps a finished context to the client taxonomy.
func ContextError(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrRequestTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
}

// kindForStatus maps an HTTP status >= 400 to an error kind.
func kindForStatus(status int) ErrorKind {
	switch status {
	case 401:
		return KindUnauthorized
	case 403:
		return KindForbidden
	case 404:
		return KindNotFound
	default:
		return KindHTTP
	}
}

// shouldRetry determines if an error should be retried. Auth, not-found,
// malformed bodies and refused connections are never retried.
func shouldRetry(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	if te.Kind == KindConnectionRefused {
		return false
	}
	switch te.Class() {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// classOf returns the error class of err, or "" when it is not a transport error.
func classOf(err error) ErrorClass {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Class()
	}
	return ""
}
