package store

import (
	"errors"
	"fmt"
)

// BackendError is a structured failure reported by a store backend.
type BackendError struct {
	Backend string
	Code    string
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Backend, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Backend, e.Code, e.Message)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is matches any BackendError carrying the same code, so that
// errors.Is(err, ErrNotFound) works across backends.
func (e *BackendError) Is(target error) bool {
	t, ok := target.(*BackendError)
	if !ok {
		return false
	}
	return t.Backend == "" && t.Code == e.Code
}

// CodeNotFound marks updates or deletes of an unknown id.
const CodeNotFound = "not-found"

// ErrNotFound is matched with errors.Is against errors from any backend.
var ErrNotFound = &BackendError{Code: CodeNotFound, Message: "transaction not found"}

// NotFound builds the backend specific not-found error for id.
func NotFound(backend, id string) error {
	return &BackendError{Backend: backend, Code: CodeNotFound, Message: fmt.Sprintf("transaction %s not found", id)}
}

// Kind classifies a store failure for logging and status mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindBackend
)

func (k Kind) String() string {
	if k == KindBackend {
		return "backend"
	}
	return "unknown"
}

// Classify reports whether err carries a BackendError.
func Classify(err error) (Kind, *BackendError) {
	var be *BackendError
	if errors.As(err, &be) {
		return KindBackend, be
	}
	return KindUnknown, nil
}
