package nuxeo

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// BadQueryError reports a request the client refused to build: a payload
// that is neither a model nor a plain map, an unsupported HTTP verb, or an
// unknown automation operation or parameter. It is raised before any network
// I/O happens, so it is always distinct from transport failures.
type BadQueryError struct {
	Reason string
	Err    error // aggregated violations, when any
}

func (e *BadQueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bad query: %s: %s", e.Reason, e.Err)
	}
	return "bad query: " + e.Reason
}

func (e *BadQueryError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from the server, carrying the status code
// and whatever the server's exception payload exposed.
type HTTPError struct {
	Status  int
	Message string
	Stack   string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned status %d", e.Status)
}

// UnauthorizedError is the 401/403 variant of HTTPError, kept as its own
// type so callers can tell credential problems from other failures.
type UnauthorizedError struct {
	HTTPError
}

func (e *UnauthorizedError) Error() string {
	return "unauthorized: " + e.HTTPError.Error()
}

// Unwrap lets errors.As match the embedded HTTPError.
func (e *UnauthorizedError) Unwrap() error { return &e.HTTPError }

// newHTTPError builds the typed error for a non-2xx response. The server
// reports exceptions as JSON ({"entity-type": "exception", "status": ...,
// "message": ..., "stacktrace": ...}); anything unparseable falls back to
// the raw body as the message.
func newHTTPError(status int, body []byte) error {
	httpErr := HTTPError{Status: status}

	var payload struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Stack   string `json:"stacktrace"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		httpErr.Message = payload.Message
		httpErr.Stack = payload.Stack
	} else if len(body) > 0 {
		httpErr.Message = string(body)
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &UnauthorizedError{HTTPError: httpErr}
	}
	return &httpErr
}
