package gatesdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes shared between the gateway's handlers and SDK clients.
const (
	ErrorCodeInvalidRequest   = "invalid_request"
	ErrorCodeLoginFailed      = "login_failed"
	ErrorCodeInvalidCode      = "invalid_code"
	ErrorCodeChallengeExpired = "challenge_expired"
	ErrorCodeSessionNotFound  = "session_not_found"
	ErrorCodeUpstreamFailure  = "upstream_failure"
	ErrorCodeUpstreamTimeout  = "upstream_timeout"
	ErrorCodeServerError      = "server_error"
)

// APIError is the gateway's standard error shape, used by handlers to
// write responses and by SDK clients to represent them.
type APIError struct {
	// StatusCode is the HTTP status this error is served with.
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes the error to an HTTP response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// WithDescription returns a copy carrying a specific description, so the
// predefined errors stay immutable.
func (e *APIError) WithDescription(desc string) *APIError {
	return &APIError{StatusCode: e.StatusCode, Code: e.Code, Description: desc}
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrLoginFailed = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeLoginFailed,
		Description: "the portal rejected the credentials",
	}

	ErrInvalidCode = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCode,
		Description: "the portal rejected the code; the challenge is still open",
	}

	ErrChallengeExpired = &APIError{
		StatusCode:  http.StatusGone,
		Code:        ErrorCodeChallengeExpired,
		Description: "the login challenge expired, start the login over",
	}

	ErrSessionNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeSessionNotFound,
		Description: "unknown session id",
	}

	ErrUpstreamFailure = &APIError{
		StatusCode:  http.StatusBadGateway,
		Code:        ErrorCodeUpstreamFailure,
		Description: "the portal could not be reached",
	}

	ErrUpstreamTimeout = &APIError{
		StatusCode:  http.StatusGatewayTimeout,
		Code:        ErrorCodeUpstreamTimeout,
		Description: "the portal took too long to answer",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "an unexpected error occurred",
	}
)
