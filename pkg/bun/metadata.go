// SPDX-License-Identifier: MPL-2.0

package bun

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"
	"golang.org/x/mod/semver"
)

var (
	// ErrInvalidName is the sentinel error wrapped by InvalidNameError.
	ErrInvalidName = errors.New("invalid bun name")
	// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrInvalidLicense is the sentinel error wrapped by InvalidLicenseError.
	ErrInvalidLicense = errors.New("invalid license")
	// ErrInvalidMetadata is the sentinel error wrapped by InvalidMetadataError.
	ErrInvalidMetadata = errors.New("invalid metadata")
)

// nameRegex matches a Python module identifier, which is what an entrypoint
// base name has to be for the bun to be importable.
var nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type (
	// Name is the name of a bun, derived from its entrypoint's base name
	// without extension (helloworld.py -> "helloworld").
	Name string

	// InvalidNameError is returned when a Name is not a valid module identifier.
	InvalidNameError struct {
		Value Name
	}

	// Version is a semantic version string such as "1.0.0" or "0.2.0-alpha.1".
	// A leading "v" is accepted. Shorthand forms ("1", "1.2") are rejected.
	Version string

	// InvalidVersionError is returned when a Version is not semantic-version formatted.
	InvalidVersionError struct {
		Value Version
	}

	// License is an SPDX license identifier or expression ("MIT",
	// "Apache-2.0 OR MIT") or a short custom label.
	License string

	// InvalidLicenseError is returned when a License is empty or whitespace-only.
	InvalidLicenseError struct {
		Value License
	}

	// Metadata is the descriptive record extracted from a script's module
	// header. Description, Author, Copyright, License and Version are required;
	// Maintainer and Email are optional.
	Metadata struct {
		Version     Version `toml:"version"`
		Description string  `toml:"description"`
		Author      string  `toml:"author"`
		Copyright   string  `toml:"copyright"`
		License     License `toml:"license"`
		Maintainer  string  `toml:"maintainer,omitempty"`
		Email       string  `toml:"email,omitempty"`
	}

	// InvalidMetadataError collects every field-level problem of a Metadata value.
	InvalidMetadataError struct {
		FieldErrors []error
	}

	// MissingFieldError reports a required metadata field that is empty.
	MissingFieldError struct {
		Field string
	}
)

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid bun name %q (must be a valid Python module name)", e.Value)
}

// Unwrap returns ErrInvalidName so callers can use errors.Is for programmatic detection.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// Validate returns an error if the Name is not a valid module identifier.
func (n Name) Validate() error {
	if !nameRegex.MatchString(string(n)) {
		return &InvalidNameError{Value: n}
	}
	return nil
}

// String returns the string representation of the Name.
func (n Name) String() string { return string(n) }

// ArchiveFile returns the archive file name for the bun ("<name>.zip").
func (n Name) ArchiveFile() string { return string(n) + ArchiveExt }

// ManifestFile returns the manifest file name for the bun ("<name>.toml").
func (n Name) ManifestFile() string { return string(n) + ManifestExt }

// EntrypointFile returns the entrypoint script name for the bun ("<name>.py").
func (n Name) EntrypointFile() string { return string(n) + EntrypointExt }

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q (expected MAJOR.MINOR.PATCH)", e.Value)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is for programmatic detection.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// Validate returns an error if the Version is not a full semantic version.
func (v Version) Validate() error {
	canonical := v.semver()
	if !semver.IsValid(canonical) {
		return &InvalidVersionError{Value: v}
	}
	// semver.IsValid accepts "v1" and "v1.2"; a bun version must spell out all three parts.
	core := strings.TrimPrefix(canonical, "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	if strings.Count(core, ".") != 2 {
		return &InvalidVersionError{Value: v}
	}
	return nil
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to or
// after other in semantic version order.
func (v Version) Compare(other Version) int {
	return semver.Compare(v.semver(), other.semver())
}

// String returns the string representation of the Version.
func (v Version) String() string { return string(v) }

func (v Version) semver() string {
	s := strings.TrimSpace(string(v))
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	return s
}

// Error implements the error interface.
func (e *InvalidLicenseError) Error() string {
	return fmt.Sprintf("invalid license %q (must not be empty)", e.Value)
}

// Unwrap returns ErrInvalidLicense so callers can use errors.Is for programmatic detection.
func (e *InvalidLicenseError) Unwrap() error { return ErrInvalidLicense }

// Validate returns an error if the License is blank. Custom labels are allowed.
func (l License) Validate() error {
	if strings.TrimSpace(string(l)) == "" {
		return &InvalidLicenseError{Value: l}
	}
	return nil
}

// IsSPDX reports whether the license is a valid SPDX identifier or expression.
// Anything else is treated as a custom license label.
func (l License) IsSPDX() bool {
	if l.Validate() != nil {
		return false
	}
	valid, _ := spdxexp.ValidateLicenses([]string{string(l)})
	return valid
}

// String returns the string representation of the License.
func (l License) String() string { return string(l) }

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q is empty", e.Field)
}

// Error implements the error interface.
func (e *InvalidMetadataError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid metadata: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidMetadata so callers can use errors.Is for programmatic detection.
func (e *InvalidMetadataError) Unwrap() error { return ErrInvalidMetadata }

// Validate checks that every required field is present and well-formed.
func (m Metadata) Validate() error {
	var errs []error
	required := []struct {
		field string
		value string
	}{
		{"description", m.Description},
		{"author", m.Author},
		{"copyright", m.Copyright},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, &MissingFieldError{Field: r.field})
		}
	}
	if err := m.License.Validate(); err != nil {
		errs = append(errs, err)
	}
	if m.Version == "" {
		errs = append(errs, &MissingFieldError{Field: "version"})
	} else if err := m.Version.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidMetadataError{FieldErrors: errs}
	}
	return nil
}
