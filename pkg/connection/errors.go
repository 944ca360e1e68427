package connection

import (
	"errors"
	"fmt"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"yqhp/geoanalysis/pkg/types"
)

// ErrNotJSON is wrapped by DecodeError when the response body is not JSON at all,
// e.g. a proxy's HTML error page.
var ErrNotJSON = errors.New("response body is not json")

// TransportError is a failure to exchange a request with the server at all.
type TransportError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request timed out.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, fasthttp.ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// StatusError is a response the server answered with a non-success HTTP status
// or an error envelope.
type StatusError struct {
	URL        string
	StatusCode int
	Service    *types.ServiceError
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Service != nil {
		return fmt.Sprintf("request to %s rejected: %v", e.URL, e.Service)
	}
	return fmt.Sprintf("request to %s failed with status: %d", e.URL, e.StatusCode)
}

// Unwrap returns the service error, if any.
func (e *StatusError) Unwrap() error {
	if e.Service == nil {
		return nil
	}
	return e.Service
}

// Code returns the service error code when present, the HTTP status otherwise.
func (e *StatusError) Code() int {
	if e.Service != nil && e.Service.Code != 0 {
		return e.Service.Code
	}
	return e.StatusCode
}

// DecodeError is a response body that is not the expected JSON.
type DecodeError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsRetryableError checks if an HTTP status code indicates a retryable error.
func IsRetryableError(statusCode int) bool {
	switch statusCode {
	case fiber.StatusServiceUnavailable,
		fiber.StatusGatewayTimeout,
		fiber.StatusBadGateway,
		fiber.StatusTooManyRequests,
		fiber.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a connector failure worth retrying:
// transport failures and transient server statuses.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return IsRetryableError(statusErr.Code())
	}
	return false
}
