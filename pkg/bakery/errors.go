// SPDX-License-Identifier: MPL-2.0

package bakery

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is the sentinel error wrapped by AlreadyExistsError.
	ErrAlreadyExists = errors.New("bakery already exists")
	// ErrInconsistentBun is the sentinel error wrapped by ConsistencyError.
	ErrInconsistentBun = errors.New("inconsistent bun")
	// ErrNotFound is returned when an operation needs an index file that does not exist.
	ErrNotFound = errors.New("bakery index not found")
	// ErrMalformedIndex is returned when the index file cannot be decoded or holds invalid entries.
	ErrMalformedIndex = errors.New("malformed bakery index")
)

type (
	// AlreadyExistsError is returned by Init when the bakery already has an index.
	// It wraps ErrAlreadyExists for errors.Is() compatibility.
	AlreadyExistsError struct {
		Path string
	}

	// ConsistencyError describes a bun rejected by Add or AddPaths.
	// It wraps ErrInconsistentBun for errors.Is() compatibility and exposes the
	// underlying cause to errors.As.
	ConsistencyError struct {
		Name  string
		Path  string
		Cause error
	}
)

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("bakery index %s already exists", e.Path)
}

// Unwrap returns ErrAlreadyExists for errors.Is() compatibility.
func (e *AlreadyExistsError) Unwrap() error { return ErrAlreadyExists }

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	name := e.Name
	if name == "" {
		name = e.Path
	}
	return fmt.Sprintf("rejected %s: %v", name, e.Cause)
}

// Unwrap returns ErrInconsistentBun and the cause.
func (e *ConsistencyError) Unwrap() []error {
	return []error{ErrInconsistentBun, e.Cause}
}
