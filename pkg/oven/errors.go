// SPDX-License-Identifier: MPL-2.0

package oven

import (
	"errors"
	"fmt"
)

// ErrBuild is the sentinel error wrapped by BuildError.
var ErrBuild = errors.New("bake failed")

const (
	// KindNoEntrypoint means the input has no usable entrypoint script.
	KindNoEntrypoint BuildErrorKind = "no-entrypoint"
	// KindInvalidName means the entrypoint name is not a valid bun name.
	KindInvalidName BuildErrorKind = "invalid-name"
	// KindExtraction means the entrypoint metadata could not be extracted.
	KindExtraction BuildErrorKind = "extraction"
	// KindIO means reading the source tree or writing the outputs failed.
	KindIO BuildErrorKind = "io"
)

type (
	// BuildErrorKind classifies a BuildError.
	BuildErrorKind string

	// BuildError is returned when a bake fails. Err carries the underlying
	// cause, e.g. a *pymeta.ExtractionError for KindExtraction.
	BuildError struct {
		Kind BuildErrorKind
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("baking %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("baking %s: %s", e.Path, e.Kind)
}

// Unwrap exposes both ErrBuild and the underlying cause to errors.Is and errors.As.
func (e *BuildError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBuild}
	}
	return []error{ErrBuild, e.Err}
}
