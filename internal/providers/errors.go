package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// ErrorKind classifies a backend failure.
type ErrorKind string

const (
	ErrConnection ErrorKind = "connection"
	ErrTimeout    ErrorKind = "timeout"
	ErrAPI        ErrorKind = "api"
)

// BackendError is returned by every backend adapter.
type BackendError struct {
	Backend    string
	Kind       ErrorKind
	StatusCode int // set for ErrAPI when the service answered
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s error (status %d): %v", e.Backend, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Transient reports whether retrying the same call may succeed.
func (e *BackendError) Transient() bool {
	switch e.Kind {
	case ErrConnection, ErrTimeout:
		return true
	case ErrAPI:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	}
	return false
}

// IsTransient reports whether err is a BackendError worth retrying.
func IsTransient(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Transient()
	}
	return false
}

// transportError wraps an error from sending a request (no response received).
func transportError(backend string, err error) error {
	kind := ErrConnection
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		kind = ErrTimeout
	}
	return &BackendError{Backend: backend, Kind: kind, Err: err}
}

// statusError wraps a non-2xx response.
func statusError(backend string, status int, body string) error {
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return &BackendError{
		Backend:    backend,
		Kind:       ErrAPI,
		StatusCode: status,
		Err:        errors.New(body),
	}
}

// apiError wraps a malformed or empty response from a service that answered 2xx.
func apiError(backend string, err error) error {
	return &BackendError{Backend: backend, Kind: ErrAPI, Err: err}
}
