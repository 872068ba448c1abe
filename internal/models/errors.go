package models

import (
	"errors"
	"fmt"
)

var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelBackoff = errors.New("channel send buffer full")

	// ErrUnknownReference is returned when a record points at a user or project that does not exist.
	ErrUnknownReference = errors.New("referenced record does not exist")
)

// ValidationError reports input the store refuses to record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// PersistenceError wraps a failure of the underlying store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError is a failed push to one live channel. It never leaves the coordinator.
type DeliveryError struct {
	Identity Identity
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.Identity, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
