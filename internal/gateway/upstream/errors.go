package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// StatusError reports a non-2xx answer from the portal. The status code
// drives the retry-once policy: 401 and 403 mean the session has lapsed.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: HTTP %d", e.Status)
}

// IsAuthFailure reports whether the status indicates a lapsed session.
func (e *StatusError) IsAuthFailure() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// NetworkError reports that the portal was unreachable or too slow. Never
// retried by the gateway; retry is the caller's responsibility.
type NetworkError struct {
	Err     error
	Timeout bool
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("upstream: timeout: %v", e.Err)
	}
	return fmt.Sprintf("upstream: network: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// wrapTransport classifies a transport-level failure.
func wrapTransport(err error) error {
	var netErr net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())
	return &NetworkError{Err: err, Timeout: timeout}
}
