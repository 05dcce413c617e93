package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistence marks store failures that must never block a reply.
	ErrPersistence = errors.New("persistence failure")
	// ErrDelegationParse marks a delegation response that is not usable JSON.
	ErrDelegationParse = errors.New("delegation response not parseable")
	// ErrSpecialist marks a failure inside a specialist; it never leaves it.
	ErrSpecialist = errors.New("specialist failure")
	// ErrUnknownAgent is returned when an agent id is not registered.
	ErrUnknownAgent = errors.New("unknown agent")
)

// PersistenceError wraps a failed store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// NewPersistenceError wraps err for operation op; nil stays nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
