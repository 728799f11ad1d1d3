package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not resolve
	ErrNotFound = errors.New("entity does not exist")

	// ErrInvalidState is returned when an operation is not allowed in the
	// request's or workflow's current state
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict is returned when a concurrent mutation is detected;
	// callers should re-read and retry
	ErrConflict = errors.New("state changed, please retry")

	// ErrInvalidInput is returned for unsupported or malformed input
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError reports which entity kind and key failed to resolve.
type NotFoundError struct {
	Kind string
	Key  interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v does not exist", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func notFound(kind string, key interface{}) error {
	return &NotFoundError{Kind: kind, Key: key}
}
