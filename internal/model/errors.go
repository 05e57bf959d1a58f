package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownIdentifier is returned when an identifier has no backing concept
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrDataStoreUnavailable wraps failures reading or writing backing storage
	ErrDataStoreUnavailable = errors.New("data store unavailable")

	// ErrDanglingReference marks a mapping record whose identifier has no concept
	ErrDanglingReference = errors.New("dangling identifier reference")

	// ErrEmptyInput is returned when confirm is given text that normalizes to nothing
	ErrEmptyInput = errors.New("empty source text")
)

// UnknownIdentifierError carries the identifier that failed validation
type UnknownIdentifierError struct {
	Identifier Identifier
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("unknown identifier %q", string(e.Identifier))
}

// Is lets errors.Is match ErrUnknownIdentifier
func (e *UnknownIdentifierError) Is(target error) bool {
	return target == ErrUnknownIdentifier
}

// StoreError wraps an underlying storage failure so that
// errors.Is(err, ErrDataStoreUnavailable) holds while keeping the cause
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrDataStoreUnavailable, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrDataStoreUnavailable, e.Err}
}

// Unavailable wraps err as a data store failure for operation op.
// A nil err yields nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
