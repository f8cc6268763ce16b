// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRemoteUnavailable is the sentinel error wrapped by RemoteUnavailableError.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrInvalidRepository is returned for repository identifiers that are not owner/name[/path].
	ErrInvalidRepository = errors.New("invalid repository identifier")
)

type (
	// RemoteUnavailableError is returned when the remote API cannot be reached
	// or answers with an error. StatusCode is zero for transport failures.
	//
	//nolint:revive // RemoteUnavailableError reads better at call sites than remote.UnavailableError
	RemoteUnavailableError struct {
		URL        string
		StatusCode int
		Err        error
	}

	// RateLimitError is returned when the GitHub API rate limit is exhausted.
	RateLimitError struct {
		Limit   int
		ResetAt time.Time
	}

	// statusError is an unexpected HTTP status.
	statusError struct {
		code int
	}
)

// Error implements the error interface.
func (e *RemoteUnavailableError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("remote unavailable: %s: %v", e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("remote unavailable: %s: status %d", e.URL, e.StatusCode)
	default:
		return "remote unavailable: " + e.URL
	}
}

// Unwrap returns ErrRemoteUnavailable and the underlying cause.
func (e *RemoteUnavailableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRemoteUnavailable}
	}
	return []error{ErrRemoteUnavailable, e.Err}
}

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (limit %d, resets at %s)",
		e.Limit, e.ResetAt.UTC().Format("15:04 UTC"))
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}
