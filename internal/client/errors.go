package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed call. The State Waiter keeps polling through
// KindTransient failures; every other kind is final for the call.
type ErrorKind int

const (
	// KindUnauthenticated means there is no usable session. Never retried;
	// the user has to login again.
	KindUnauthenticated ErrorKind = iota + 1
	// KindRejected is an authoritative 4xx answer from the service.
	KindRejected
	// KindTransient covers transport failures and 5xx answers.
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindRejected:
		return "rejected"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRejected        = errors.New("rejected")
	ErrTransient       = errors.New("transient failure")
)

// APIError is the single error type returned by Client for anything that went
// wrong talking to the service.
type APIError struct {
	Kind    ErrorKind
	Status  int // zero when no response was received
	Message string
	Method  string
	Path    string
	Err     error // underlying transport error, if any
}

func (e *APIError) Error() string {
	var request string
	if len(e.Method) > 0 {
		request = fmt.Sprintf("%s %s: ", e.Method, e.Path)
	}

	if e.Status > 0 {
		return fmt.Sprintf("%s%s (%d): %s", request, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s%s: %s", request, e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is lets callers match on the sentinel for the error kind, e.g.
// errors.Is(err, client.ErrUnauthenticated).
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Kind == KindUnauthenticated
	case ErrRejected:
		return e.Kind == KindRejected
	case ErrTransient:
		return e.Kind == KindTransient
	}
	return false
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsNotFound reports a rejection because the resource does not exist.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == KindRejected && apiErr.Status == http.StatusNotFound
}

// KindOf returns the kind of an API error, or zero for anything else.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthenticated
	case status >= 500:
		return KindTransient
	default:
		return KindRejected
	}
}
