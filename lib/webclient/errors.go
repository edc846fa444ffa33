package webclient

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateSession = errors.New("webclient: session already exists")
	ErrNoSuchSession    = errors.New("webclient: no such session")
	ErrTransportClosed  = errors.New("webclient: transport is closed")

	// ErrNotLoggedIn is returned when the service redirected the request to its
	// login page, whatever the status code of the response was.
	ErrNotLoggedIn = errors.New("webclient: user is not logged in")

	ErrConnectionFailure = errors.New("webclient: connection failure")
	ErrServerStatus      = errors.New("webclient: server error")
	ErrClientStatus      = errors.New("webclient: client error")

	ErrInvalidResponseShape = errors.New("webclient: invalid response shape")
	ErrScriptNotFound       = errors.New("webclient: script not found")
)

// StatusError is returned for responses with a 4xx or 5xx status when the
// transport raises on error statuses. It matches ErrClientStatus or
// ErrServerStatus with errors.Is.
type StatusError struct {
	Method     string
	Url        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	kind := "server error"
	if e.Client() {
		kind = "client error"
	}
	return fmt.Sprintf("webclient: %s: %s %s: %s", kind, e.Method, e.Url, e.Status)
}

// Client reports whether the status is in the 4xx range.
func (e *StatusError) Client() bool {
	return e.StatusCode >= 400 && e.StatusCode <= 499
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrClientStatus:
		return e.Client()
	case ErrServerStatus:
		return !e.Client()
	}
	return false
}

// ConnectionError wraps a failure to complete the exchange at all (dial, dns,
// reset, timeout). It matches ErrConnectionFailure with errors.Is.
type ConnectionError struct {
	Method string
	Url    string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("webclient: connection failure: %s %s: %s", e.Method, e.Url, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailure
}

// StatusCode returns the status carried by err if it is (or wraps) a
// StatusError, zero otherwise.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
